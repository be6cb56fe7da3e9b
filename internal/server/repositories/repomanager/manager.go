// Package repomanager selects and owns the storage backend behind the
// user repository.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mockpay/internal/server/repositories/users"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type RepositoryManager interface {
	Users() users.Repository
	Close() error
}

// Options carries the connection settings of every backend; only the ones
// matching Storage are used.
type Options struct {
	Storage     string
	DatabaseDSN string
	RedisAddr   string
}

// NewRepositoryManager connects to the configured backend and, for
// PostgreSQL, applies pending migrations.
func NewRepositoryManager(ctx context.Context, opts Options) (RepositoryManager, error) {
	switch opts.Storage {
	case StorageMemory, "":
		return NewMemoryRepositoryManager(), nil
	case StoragePostgres:
		return NewPostgresRepositoryManager(ctx, opts.DatabaseDSN)
	case StorageRedis:
		return NewRedisRepositoryManager(ctx, opts.RedisAddr)
	}
	return nil, fmt.Errorf("unsupported storage %q", opts.Storage)
}

type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *MemoryRepositoryManager) Close() error {
	return nil
}
