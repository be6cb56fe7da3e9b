package services

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/cryptox"
	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/auth"
	"github.com/dmitrijs2005/mockpay/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
)

func cheapHasher() cryptox.PasswordHasher {
	return cryptox.NewArgon2Hasher(cryptox.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
}

func newCredentialStore(t *testing.T, repo users.Repository) *CredentialStore {
	t.Helper()
	s, err := NewCredentialStore(repo, cheapHasher(), logging.Nop{})
	require.NoError(t, err)
	return s
}

type sessionFixture struct {
	repo     users.Repository
	creds    *CredentialStore
	issuer   *auth.Issuer
	sessions *SessionService
}

func newSessionFixture(t *testing.T, repo users.Repository) *sessionFixture {
	t.Helper()
	if repo == nil {
		repo = users.NewMemoryRepository()
	}
	issuer, err := auth.NewIssuer([]byte("test-signing-key"), "mockpay", "mockpay", 15*time.Minute)
	require.NoError(t, err)

	creds := newCredentialStore(t, repo)
	return &sessionFixture{
		repo:     repo,
		creds:    creds,
		issuer:   issuer,
		sessions: NewSessionService(creds, repo, issuer, 7*24*time.Hour, logging.Nop{}),
	}
}
