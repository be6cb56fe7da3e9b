package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/dmitrijs2005/mockpay/internal/dbx"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PostgresRepository stores users in the users table. Optimistic updates are
// a single conditional UPDATE on (id, version).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING version
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt).Scan(&user.Version)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const selectUser = `SELECT id, email, password_hash, refresh_token, refresh_token_expires_at,
		 last_login_at, version, created_at
		 FROM users
		 `

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`WHERE refresh_token = $1`, token)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var (
		user        models.User
		refresh     sql.NullString
		refreshExp  sql.NullTime
		lastLoginAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &refresh, &refreshExp,
		&lastLoginAt, &user.Version, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if refresh.Valid {
		user.SetRefreshToken(refresh.String, refreshExp.Time)
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		user.LastLoginAt = &t
	}

	return &user, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users
		 SET password_hash = $2, refresh_token = $3, refresh_token_expires_at = $4,
		     last_login_at = $5, version = version + 1
		 WHERE id = $1 AND version = $6
		 `

	var refresh, refreshExp, lastLoginAt any
	if user.RefreshToken != "" {
		refresh, refreshExp = user.RefreshToken, user.RefreshTokenExpiresAt
	}
	if user.LastLoginAt != nil {
		lastLoginAt = *user.LastLoginAt
	}

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.PasswordHash, refresh, refreshExp, lastLoginAt, user.Version)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if err := dbx.ExpectAffected(res, 1, common.ErrVersionConflict); err != nil {
		return err
	}

	user.Version++
	return nil
}
