// Package services contains server-side business logic: credential storage,
// the session lifecycle and the payment simulator.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/dmitrijs2005/mockpay/internal/cryptox"
	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/dmitrijs2005/mockpay/internal/server/repositories/users"
	"github.com/google/uuid"
)

// CredentialStore owns user identity records and their password hashes.
type CredentialStore struct {
	users     users.Repository
	hasher    cryptox.PasswordHasher
	dummyHash string
	log       logging.Logger
	now       func() time.Time
}

// NewCredentialStore prepares a dummy hash with hasher so that lookups of
// unknown emails cost one verification, like lookups of known ones.
func NewCredentialStore(repo users.Repository, hasher cryptox.PasswordHasher, log logging.Logger) (*CredentialStore, error) {
	dummy := common.GenerateRandByteArray(32)
	defer common.WipeByteArray(dummy)

	dummyHash, err := hasher.Hash(dummy)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &CredentialStore{
		users:     repo,
		hasher:    hasher,
		dummyHash: dummyHash,
		log:       log.With("module", "credentials"),
		now:       time.Now,
	}, nil
}

// Register creates a user for email. password is wiped before returning.
func (s *CredentialStore) Register(ctx context.Context, email string, password []byte) error {
	defer common.WipeByteArray(password)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return common.ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, cryptox.ErrPasswordTooLong) {
		return fmt.Errorf("%w: %v", common.ErrMalformedRequest, err)
	}
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID, "email", email)
	return nil
}

// Verify returns the user owning email if password matches its hash.
// Unknown email and wrong password both yield common.ErrInvalidCredentials.
// password is wiped before returning.
func (s *CredentialStore) Verify(ctx context.Context, email string, password []byte) (*models.User, error) {
	defer common.WipeByteArray(password)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored password hash unusable", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return user, nil
}
