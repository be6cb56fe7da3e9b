// Package common contains shared constants and sentinel errors used across
// mockpay components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RefreshTokenSize is the number of random bytes in a refresh token (512 bits).
const RefreshTokenSize = 64
