package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mockpay/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
)

type RedisRepositoryManager struct {
	rdb *redis.Client
}

func NewRedisRepositoryManager(ctx context.Context, addr string) (*RedisRepositoryManager, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis storage requires an address")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisRepositoryManager{rdb: rdb}, nil
}

func (m *RedisRepositoryManager) Users() users.Repository {
	return users.NewRedisRepository(m.rdb)
}

func (m *RedisRepositoryManager) Close() error {
	return m.rdb.Close()
}
