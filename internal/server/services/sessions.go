package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/dmitrijs2005/mockpay/internal/server/repositories/users"
)

// loginWriteAttempts bounds how often Login re-reads the user after losing
// a version race on its write.
const loginWriteAttempts = 3

// TokenPair bundles a short-lived access token and a single-use refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type TokenIssuer interface {
	IssueAccessToken(userID, email string) (string, error)
	IssueRefreshToken() (string, error)
}

// SessionService drives the register / login / refresh lifecycle. All
// writes go through users.Repository.Update, so a refresh token is consumed
// at most once even under concurrent use.
type SessionService struct {
	credentials *CredentialStore
	users       users.Repository
	tokens      TokenIssuer
	refreshTTL  time.Duration
	log         logging.Logger
	now         func() time.Time
}

func NewSessionService(creds *CredentialStore, repo users.Repository, tokens TokenIssuer, refreshTTL time.Duration, log logging.Logger) *SessionService {
	return &SessionService{
		credentials: creds,
		users:       repo,
		tokens:      tokens,
		refreshTTL:  refreshTTL,
		log:         log.With("module", "sessions"),
		now:         time.Now,
	}
}

func (s *SessionService) Register(ctx context.Context, email, password string) error {
	return s.credentials.Register(ctx, email, []byte(password))
}

// Login verifies credentials and replaces any stored refresh token with a
// fresh one.
func (s *SessionService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.credentials.Verify(ctx, email, []byte(password))
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.log.Warn(ctx, "login rejected", "email", email)
		}
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		pair, err := s.issue(ctx, user, true)
		if err == nil {
			s.log.Info(ctx, "user logged in", "user_id", user.ID)
			return pair, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) {
			return nil, err
		}
		if attempt == loginWriteAttempts {
			return nil, fmt.Errorf("%w: user %s kept changing during login", common.ErrInternal, user.ID)
		}

		s.log.Debug(ctx, "login lost version race, retrying", "user_id", user.ID, "attempt", attempt)
		if user, err = s.users.GetByEmail(ctx, email); err != nil {
			return nil, fmt.Errorf("reload user: %w", err)
		}
	}
}

// Refresh consumes refreshToken and returns a new pair. Unknown, expired,
// already rotated or concurrently consumed tokens yield
// common.ErrInvalidToken and change nothing.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidToken
	}

	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.log.Warn(ctx, "refresh rejected: unknown token")
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, common.ErrInvalidToken
	}
	if !user.HasRefreshToken(s.now()) {
		s.log.Warn(ctx, "refresh rejected: token expired", "user_id", user.ID)
		return nil, common.ErrInvalidToken
	}

	pair, err := s.issue(ctx, user, false)
	if err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			s.log.Warn(ctx, "refresh rejected: token already consumed", "user_id", user.ID)
			return nil, common.ErrInvalidToken
		}
		return nil, err
	}

	return pair, nil
}

// issue mints a pair for user and stores the new refresh token with a CAS
// on user.Version. common.ErrVersionConflict is returned unwrapped.
func (s *SessionService) issue(ctx context.Context, user *models.User, login bool) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.now().UTC()
	next := *user
	next.SetRefreshToken(refresh, now.Add(s.refreshTTL))
	if login {
		next.LastLoginAt = &now
	}

	if err := s.users.Update(ctx, &next); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			return nil, common.ErrVersionConflict
		}
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
