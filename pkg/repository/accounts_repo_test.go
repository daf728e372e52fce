package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func q(query string) string {
	return regexp.QuoteMeta(query)
}

var accountRowColumns = []string{"id", "email", "name", "password_hash", "verified", "created_at", "updated_at"}

func TestAccountsRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)
	now := time.Now()
	acc := &domain.Account{ID: uuid.New(), Email: "ann@x.io", Name: "Ann", PasswordHash: "h", CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(q("INSERT INTO accounts")).
		WithArgs(acc.ID, "ann@x.io", "Ann", "h", false, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), acc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountsRepository_CreateDuplicateEmail(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "lib/pq", err: &pq.Error{Code: "23505"}},
		{name: "pgx", err: &pgconn.PgError{Code: "23505"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewAccountsRepository(db)

			mock.ExpectExec(q("INSERT INTO accounts")).WillReturnError(tt.err)

			err := repo.Create(context.Background(), &domain.Account{ID: uuid.New(), Email: "ann@x.io"})
			assert.ErrorIs(t, err, domain.ErrEmailTaken)
		})
	}
}

func TestAccountsRepository_CreateOtherError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)

	mock.ExpectExec(q("INSERT INTO accounts")).WillReturnError(&pq.Error{Code: "23503"})

	err := repo.Create(context.Background(), &domain.Account{ID: uuid.New()})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAccountsRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(q("FROM accounts WHERE email = $1")).
		WithArgs("ann@x.io").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).AddRow(id.String(), "ann@x.io", "Ann", "h", true, now, now))

	got, err := repo.GetByEmail(context.Background(), "ann@x.io")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Ann", got.Name)
	assert.True(t, got.Verified)
}

func TestAccountsRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)
	id := uuid.New()

	mock.ExpectQuery(q("FROM accounts WHERE id = $1")).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountsRepository_ExistsByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)

	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)")).
		WithArgs("ann@x.io").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByEmail(context.Background(), "ann@x.io")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccountsRepository_UpdatePasswordHashNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)
	id := uuid.New()

	mock.ExpectExec(q("UPDATE accounts SET password_hash = $2")).
		WithArgs(id, "new").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), id, "new"), domain.ErrAccountNotFound)
}

func TestAccountsRepository_UpdateVerified(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)
	id := uuid.New()

	mock.ExpectExec(q("UPDATE accounts SET verified = $2")).
		WithArgs(id, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE accounts SET verified = $2")).
		WithArgs(id, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateVerified(context.Background(), id, true))
	assert.ErrorIs(t, repo.UpdateVerified(context.Background(), id, false), domain.ErrAccountNotFound)
}

func TestAccountsRepository_UpdateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)

	mock.ExpectExec(q("UPDATE accounts")).WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Update(context.Background(), &domain.Account{ID: uuid.New(), Email: "taken@x.io"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestAccountsRepository_DeleteRemovesCodesInTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM verification_codes WHERE account_id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("DELETE FROM accounts WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountsRepository_DeleteMissingRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountsRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM verification_codes")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM accounts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), id), domain.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTx_RollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = Tx(context.Background(), db, func(tx *sql.Tx) error {
			panic("boom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTx_ReturnsFnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := Tx(context.Background(), db, func(tx *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
