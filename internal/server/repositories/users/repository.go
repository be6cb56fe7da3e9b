// Package users provides storage for user identity records.
//
// Every implementation treats Update as a compare-and-swap on
// models.User.Version: the write lands only if the stored version equals the
// caller's copy, and the stored version is then incremented. A caller that
// lost the race receives common.ErrVersionConflict and must re-read.
package users

import (
	"context"

	"github.com/dmitrijs2005/mockpay/internal/server/models"
)

type Repository interface {
	// Create stores a new user with Version 1. Returns common.ErrDuplicateEmail
	// if the email is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByEmail returns common.ErrNotFound for an unknown email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByRefreshToken returns common.ErrNotFound when no user holds token.
	// Expiry is not checked here.
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)
	// Update replaces the mutable fields of user if user.Version is current.
	// On success user.Version is advanced to the stored value.
	Update(ctx context.Context, user *models.User) error
}
