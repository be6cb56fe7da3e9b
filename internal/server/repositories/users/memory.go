package users

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
)

// MemoryRepository keeps users in process memory. A single mutex guards all
// indexes so an Update and the index moves it implies happen together.
type MemoryRepository struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	byEmail   map[string]string
	byRefresh map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:      make(map[string]*models.User),
		byEmail:   make(map[string]string),
		byRefresh: make(map[string]string),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrDuplicateEmail
	}

	user.Version = 1
	stored := cloneUser(user)
	r.byID[user.ID] = stored
	r.byEmail[user.Email] = user.ID
	if user.RefreshToken != "" {
		r.byRefresh[user.RefreshToken] = user.ID
	}

	return user, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *MemoryRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byRefresh[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *MemoryRepository) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return common.ErrNotFound
	}
	if current.Version != user.Version {
		return common.ErrVersionConflict
	}

	if current.RefreshToken != "" {
		delete(r.byRefresh, current.RefreshToken)
	}
	if user.RefreshToken != "" {
		r.byRefresh[user.RefreshToken] = user.ID
	}

	user.Version++
	next := cloneUser(user)
	next.Email = current.Email
	next.CreatedAt = current.CreatedAt
	r.byID[user.ID] = next

	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}
