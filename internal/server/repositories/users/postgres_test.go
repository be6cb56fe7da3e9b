package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/mockpay/internal/common"
	"github.com/dmitrijs2005/mockpay/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ    = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*password_hash,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+version\s*$`
	byEmailQ   = `(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	byRefreshQ = `(?s)^SELECT\s+id,\s*email,.*FROM\s+users\s+WHERE\s+refresh_token\s*=\s*\$1$`
	updateQ    = `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,.*version\s*=\s*version\s*\+\s*1\s+WHERE\s+id\s*=\s*\$1\s+AND\s+version\s*=\s*\$6\s*$`
)

var userColumns = []string{
	"id", "email", "password_hash", "refresh_token", "refresh_token_expires_at",
	"last_login_at", "version", "created_at",
}

func TestPostgresCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(insertQ).
		WithArgs("u-1", "a@x.com", "$argon2id$hash", created).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(1)))

	u := &models.User{ID: "u-1", Email: "a@x.com", PasswordHash: "$argon2id$hash", CreatedAt: created}
	got, err := repo.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("unexpected version: %d", got.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "a@x.com"})
	if !errors.Is(err, common.ErrDuplicateEmail) {
		t.Fatalf("want ErrDuplicateEmail, got %v", err)
	}
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "a@x.com"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgresGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	mock.ExpectQuery(byEmailQ).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u-1", "a@x.com", "h", "rt", exp, now, int64(3), now))

	got, err := repo.GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.ID != "u-1" || got.RefreshToken != "rt" || !got.RefreshTokenExpiresAt.Equal(exp) || got.Version != 3 {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(now) {
		t.Fatalf("unexpected last login: %v", got.LastLoginAt)
	}
}

func TestPostgresGetByEmail_NullColumns(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(byEmailQ).
		WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u-1", "a@x.com", "h", nil, nil, nil, int64(1), now))

	got, err := repo.GetByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if got.RefreshToken != "" || !got.RefreshTokenExpiresAt.IsZero() || got.LastLoginAt != nil {
		t.Fatalf("expected empty session fields: %+v", got)
	}
}

func TestPostgresGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byEmailQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "ghost")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestPostgresGetByRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(byRefreshQ).
		WithArgs("rt").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("u-1", "a@x.com", "h", "rt", now, nil, int64(2), now))
	mock.ExpectQuery(byRefreshQ).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByRefreshToken(context.Background(), "rt")
	if err != nil || got.ID != "u-1" {
		t.Fatalf("unexpected result: %+v, %v", got, err)
	}

	_, err = repo.GetByRefreshToken(context.Background(), "gone")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestPostgresUpdate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	mock.ExpectExec(updateQ).
		WithArgs("u-1", "h", "rt", exp, now, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: "u-1", PasswordHash: "h", RefreshToken: "rt", RefreshTokenExpiresAt: exp, LastLoginAt: &now, Version: 4}
	if err := repo.Update(context.Background(), u); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if u.Version != 5 {
		t.Fatalf("version not advanced: %d", u.Version)
	}
}

func TestPostgresUpdate_ClearsRefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(updateQ).
		WithArgs("u-1", "h", nil, nil, nil, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{ID: "u-1", PasswordHash: "h", Version: 1}
	if err := repo.Update(context.Background(), u); err != nil {
		t.Fatalf("Update error: %v", err)
	}
}

func TestPostgresUpdate_VersionConflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(updateQ).WillReturnResult(sqlmock.NewResult(0, 0))

	u := &models.User{ID: "u-1", PasswordHash: "h", Version: 2}
	err := repo.Update(context.Background(), u)
	if !errors.Is(err, common.ErrVersionConflict) {
		t.Fatalf("want ErrVersionConflict, got %v", err)
	}
	if u.Version != 2 {
		t.Fatalf("version must not change on conflict: %d", u.Version)
	}
}

func TestPostgresUpdate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(updateQ).WillReturnError(errors.New("db err"))

	err := repo.Update(context.Background(), &models.User{ID: "u-1"})
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
