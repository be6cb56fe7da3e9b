// Package common defines shared constants and sentinel errors used across
// client and server layers of mockpay. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrInternal = errors.New("internal error")

	// Registration conflict.
	ErrDuplicateEmail = errors.New("user already exists")

	// Login failure. Unknown user and wrong password are deliberately the same error.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Access or refresh token rejected: bad signature, expired, rotated out or unknown.
	ErrInvalidToken = errors.New("invalid token")

	// Missing or invalid request fields, raised by the transports.
	ErrMalformedRequest = errors.New("malformed request")
)
