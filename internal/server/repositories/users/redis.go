package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	user:{id}         HASH with the record fields, times as unix milliseconds
//	email:{email}     STRING user id
//	refresh:{token}   STRING user id, expires with the token
const (
	userKeyPrefix    = "user:"
	emailKeyPrefix   = "email:"
	refreshKeyPrefix = "refresh:"
)

const createUserScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("HSET", KEYS[2], unpack(ARGV, 2))
return 1
`

var createUserLua = redis.NewScript(createUserScript)

// ARGV: expected version, has old token, has new token, password hash,
// refresh token, refresh expiry ms, last login ms, user id.
const updateUserScript = `
local v = redis.call("HGET", KEYS[1], "version")
if not v then
  return -1
end
if v ~= ARGV[1] then
  return 0
end
if ARGV[2] == "1" then
  redis.call("DEL", KEYS[2])
end
redis.call("HSET", KEYS[1],
  "password_hash", ARGV[4],
  "refresh_token", ARGV[5],
  "refresh_token_expires_at", ARGV[6],
  "last_login_at", ARGV[7])
local nv = redis.call("HINCRBY", KEYS[1], "version", 1)
if ARGV[3] == "1" then
  redis.call("SET", KEYS[3], ARGV[8])
  redis.call("PEXPIREAT", KEYS[3], ARGV[6])
end
return nv
`

var updateUserLua = redis.NewScript(updateUserScript)

// RedisRepository stores users in Redis. Create and Update run as Lua
// scripts so the record and its lookup keys change in one step.
type RedisRepository struct {
	rdb redis.UniversalClient
}

func NewRedisRepository(rdb redis.UniversalClient) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func (r *RedisRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	keys := []string{emailKeyPrefix + user.Email, userKeyPrefix + user.ID}
	args := []any{
		user.ID,
		"id", user.ID,
		"email", user.Email,
		"password_hash", user.PasswordHash,
		"refresh_token", "",
		"refresh_token_expires_at", "",
		"last_login_at", "",
		"version", 1,
		"created_at", user.CreatedAt.UnixMilli(),
	}

	n, err := createUserLua.Run(ctx, r.rdb, keys, args...).Int64()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if n == 0 {
		return nil, common.ErrDuplicateEmail
	}

	user.Version = 1
	return user, nil
}

func (r *RedisRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := r.rdb.Get(ctx, emailKeyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	return r.getByID(ctx, id)
}

func (r *RedisRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	id, err := r.rdb.Get(ctx, refreshKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}

	user, err := r.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.RefreshToken != token {
		return nil, common.ErrNotFound
	}
	return user, nil
}

func (r *RedisRepository) getByID(ctx context.Context, id string) (*models.User, error) {
	fields, err := r.rdb.HGetAll(ctx, userKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrNotFound
	}
	return decodeUser(fields)
}

func (r *RedisRepository) Update(ctx context.Context, user *models.User) error {
	stored, err := r.getByID(ctx, user.ID)
	if err != nil {
		return err
	}

	var (
		hasOld, hasNew = "0", "0"
		refreshExp     = ""
		lastLogin      = ""
	)
	if stored.RefreshToken != "" {
		hasOld = "1"
	}
	if user.RefreshToken != "" {
		hasNew = "1"
		refreshExp = strconv.FormatInt(user.RefreshTokenExpiresAt.UnixMilli(), 10)
	}
	if user.LastLoginAt != nil {
		lastLogin = strconv.FormatInt(user.LastLoginAt.UnixMilli(), 10)
	}

	keys := []string{
		userKeyPrefix + user.ID,
		refreshKeyPrefix + stored.RefreshToken,
		refreshKeyPrefix + user.RefreshToken,
	}
	args := []any{
		user.Version, hasOld, hasNew,
		user.PasswordHash, user.RefreshToken, refreshExp, lastLogin, user.ID,
	}

	n, err := updateUserLua.Run(ctx, r.rdb, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	switch {
	case n < 0:
		return common.ErrNotFound
	case n == 0:
		return common.ErrVersionConflict
	}

	user.Version = n
	return nil
}

func decodeUser(f map[string]string) (*models.User, error) {
	user := &models.User{
		ID:           f["id"],
		Email:        f["email"],
		PasswordHash: f["password_hash"],
	}

	var err error
	if user.Version, err = strconv.ParseInt(f["version"], 10, 64); err != nil {
		return nil, fmt.Errorf("redis error: bad version: %w", err)
	}

	created, err := parseMillis(f["created_at"])
	if err != nil {
		return nil, err
	}
	if created != nil {
		user.CreatedAt = *created
	}

	if token := f["refresh_token"]; token != "" {
		exp, err := parseMillis(f["refresh_token_expires_at"])
		if err != nil {
			return nil, err
		}
		if exp == nil {
			return nil, fmt.Errorf("redis error: refresh token %s without expiry", user.ID)
		}
		user.SetRefreshToken(token, *exp)
	}

	if user.LastLoginAt, err = parseMillis(f["last_login_at"]); err != nil {
		return nil, err
	}

	return user, nil
}

func parseMillis(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis error: bad timestamp %q: %w", s, err)
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}
