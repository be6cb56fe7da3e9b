package models

import "time"

// User is the persisted identity record. RefreshToken and
// RefreshTokenExpiresAt are either both set or both zero.
type User struct {
	ID                    string
	Email                 string
	PasswordHash          string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	LastLoginAt           *time.Time
	Version               int64
	CreatedAt             time.Time
}

// HasRefreshToken reports whether the user holds an active refresh token
// at the given instant.
func (u *User) HasRefreshToken(now time.Time) bool {
	return u.RefreshToken != "" && now.Before(u.RefreshTokenExpiresAt)
}

// SetRefreshToken replaces the stored refresh token and its expiry together.
func (u *User) SetRefreshToken(token string, expiresAt time.Time) {
	u.RefreshToken = token
	u.RefreshTokenExpiresAt = expiresAt
}
