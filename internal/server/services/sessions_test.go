package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/dmitrijs2005/mockpay/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_Scenario(t *testing.T) {
	f := newSessionFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.sessions.Register(ctx, "a@x.com", "Secret123!"))

	p1, err := f.sessions.Login(ctx, "a@x.com", "Secret123!")
	require.NoError(t, err)
	require.NotEmpty(t, p1.AccessToken)
	require.NotEmpty(t, p1.RefreshToken)

	claims, err := f.issuer.ValidateAccessToken(p1.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)

	p2, err := f.sessions.Refresh(ctx, p1.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, p1.RefreshToken, p2.RefreshToken)

	_, err = f.sessions.Refresh(ctx, p1.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	p3, err := f.sessions.Refresh(ctx, p2.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, p2.RefreshToken, p3.RefreshToken)
}

func TestSessions_LoginSetsStateAndReplacesToken(t *testing.T) {
	f := newSessionFixture(t, nil)
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f.sessions.now = func() time.Time { return now }

	require.NoError(t, f.sessions.Register(ctx, "a@x.com", "pw"))
	first, err := f.sessions.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	u, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, u.LastLoginAt)
	assert.True(t, u.LastLoginAt.Equal(now))
	assert.Equal(t, first.RefreshToken, u.RefreshToken)
	assert.True(t, u.RefreshTokenExpiresAt.Equal(now.Add(7*24*time.Hour)))

	second, err := f.sessions.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	_, err = f.sessions.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = f.sessions.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestSessions_LoginRejected(t *testing.T) {
	f := newSessionFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.sessions.Register(ctx, "a@x.com", "pw"))

	before, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	_, err = f.sessions.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = f.sessions.Login(ctx, "b@x.com", "pw")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	after, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSessions_RefreshExpired(t *testing.T) {
	f := newSessionFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.sessions.Register(ctx, "a@x.com", "pw"))

	pair, err := f.sessions.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	f.sessions.now = func() time.Time { return time.Now().Add(7*24*time.Hour + time.Second) }
	before, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	_, err = f.sessions.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	after, err := f.repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
}

func TestSessions_RefreshUnknownOrEmpty(t *testing.T) {
	f := newSessionFixture(t, nil)

	_, err := f.sessions.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = f.sessions.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestSessions_ConcurrentRefreshOneWinner(t *testing.T) {
	f := newSessionFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.sessions.Register(ctx, "a@x.com", "pw"))
	pair, err := f.sessions.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	const n = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = f.sessions.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, common.ErrInvalidToken)
	}
	assert.Equal(t, 1, wins)
}

// conflictingRepo fails the first conflicts Update calls with a version
// conflict, as if another request had written the user in between.
type conflictingRepo struct {
	users.Repository
	mu        sync.Mutex
	conflicts int
	reloads   int
}

func (r *conflictingRepo) Update(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return common.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.Repository.Update(ctx, u)
}

func (r *conflictingRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	r.reloads++
	r.mu.Unlock()
	return r.Repository.GetByEmail(ctx, email)
}

func TestSessions_LoginRetriesVersionConflict(t *testing.T) {
	repo := &conflictingRepo{Repository: users.NewMemoryRepository()}
	f := newSessionFixture(t, repo)
	ctx := context.Background()
	require.NoError(t, f.sessions.Register(ctx, "a@x.com", "pw"))

	repo.conflicts = 2
	repo.reloads = 0
	pair, err := f.sessions.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	// one read for verification, two after lost races
	assert.Equal(t, 3, repo.reloads)

	repo.conflicts = 3
	_, err = f.sessions.Login(ctx, "a@x.com", "pw")
	assert.ErrorIs(t, err, common.ErrInternal)
	assert.NotErrorIs(t, err, common.ErrVersionConflict)
}

func TestSessions_RefreshVersionConflictIsInvalidToken(t *testing.T) {
	repo := &conflictingRepo{Repository: users.NewMemoryRepository()}
	f := newSessionFixture(t, repo)
	ctx := context.Background()
	require.NoError(t, f.sessions.Register(ctx, "a@x.com", "pw"))
	pair, err := f.sessions.Login(ctx, "a@x.com", "pw")
	require.NoError(t, err)

	repo.conflicts = 1
	_, err = f.sessions.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

type stubIssuer struct {
	accessErr  error
	refreshErr error
}

func (s stubIssuer) IssueAccessToken(string, string) (string, error) { return "access", s.accessErr }
func (s stubIssuer) IssueRefreshToken() (string, error)              { return "refresh", s.refreshErr }

func TestSessions_IssuerErrors(t *testing.T) {
	repo := users.NewMemoryRepository()
	creds := newCredentialStore(t, repo)
	ctx := context.Background()
	require.NoError(t, creds.Register(ctx, "a@x.com", []byte("pw")))

	boom := errors.New("rng exhausted")
	for _, issuer := range []stubIssuer{{accessErr: boom}, {refreshErr: boom}} {
		s := NewSessionService(creds, repo, issuer, time.Hour, logging.Nop{})
		_, err := s.Login(ctx, "a@x.com", "pw")
		assert.ErrorIs(t, err, boom)
	}

	u, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Empty(t, u.RefreshToken)
}

func TestSessions_RepositoryFailureIsNotAuthError(t *testing.T) {
	boom := errors.New("db down")
	f := newSessionFixture(t, failingUsersRepo{err: boom})

	_, err := f.sessions.Refresh(context.Background(), "token")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrInvalidToken)
}
