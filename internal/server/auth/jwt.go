// Package auth mints and validates the tokens handed to API clients:
// short-lived HS256 access tokens and opaque random refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrEmptySigningKey = errors.New("signing key must not be empty")

// Claims are the access token payload: the registered claims plus the
// user's email.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer is stateless apart from its settings and is safe for concurrent use.
type Issuer struct {
	key       []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	now       func() time.Time
}

type Option func(*Issuer)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(key []byte, issuer, audience string, accessTTL time.Duration, opts ...Option) (*Issuer, error) {
	if len(key) == 0 {
		return nil, ErrEmptySigningKey
	}
	if accessTTL <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", accessTTL)
	}

	i := &Issuer{
		key:       append([]byte(nil), key...),
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) IssueAccessToken(userID, email string) (string, error) {
	now := i.now()

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken returns 512 bits from crypto/rand, base64 encoded.
func (i *Issuer) IssueRefreshToken() (string, error) {
	return common.MakeRandBase64String(common.RefreshTokenSize)
}

// ValidateAccessToken checks the signature, algorithm, issuer, audience and
// expiry of token. Every failure is reported as common.ErrInvalidToken.
func (i *Issuer) ValidateAccessToken(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !parsed.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
