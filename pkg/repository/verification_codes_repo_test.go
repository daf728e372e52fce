package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

func testCode() *domain.VerificationCode {
	now := time.Now()
	return &domain.VerificationCode{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		CodeHash:  "hash",
		Purpose:   domain.PurposeEmailVerification,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestVerificationCodesRepository_Replace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationCodesRepository(db)
	code := testCode()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM accounts WHERE id = $1 FOR UPDATE")).
		WithArgs(code.AccountID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(code.AccountID.String()))
	mock.ExpectExec(q("DELETE FROM verification_codes WHERE account_id = $1")).
		WithArgs(code.AccountID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO verification_codes")).
		WithArgs(code.ID, code.AccountID, "hash", "email_verification", code.IssuedAt, code.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), code))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationCodesRepository_ReplaceUnknownAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationCodesRepository(db)
	code := testCode()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Replace(context.Background(), code), domain.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationCodesRepository_FindAllForAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationCodesRepository(db)
	accountID := uuid.New()
	now := time.Now()
	newer, older := uuid.New(), uuid.New()

	mock.ExpectQuery(q("ORDER BY issued_at DESC")).
		WithArgs(accountID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "code_hash", "purpose", "issued_at", "expires_at"}).
			AddRow(newer.String(), accountID.String(), "h2", "password_reset", now, now.Add(time.Hour)).
			AddRow(older.String(), accountID.String(), "h1", "email_verification", now.Add(-time.Minute), now.Add(time.Hour)))

	codes, err := repo.FindAllForAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, newer, codes[0].ID)
	assert.Equal(t, domain.PurposePasswordReset, codes[0].Purpose)
}

func TestVerificationCodesRepository_Consume(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationCodesRepository(db)
	code := testCode()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(code.AccountID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(code.AccountID.String()))
	mock.ExpectExec(q("DELETE FROM verification_codes WHERE id = $1")).
		WithArgs(code.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM verification_codes WHERE account_id = $1")).
		WithArgs(code.AccountID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("UPDATE accounts SET verified = TRUE")).
		WithArgs(code.AccountID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Consume(context.Background(), code))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationCodesRepository_ConsumeSuperseded(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationCodesRepository(db)
	code := testCode()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(code.AccountID.String()))
	mock.ExpectExec(q("DELETE FROM verification_codes WHERE id = $1")).
		WithArgs(code.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Consume(context.Background(), code), domain.ErrCodeSuperseded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerificationCodesRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVerificationCodesRepository(db)
	id := uuid.New()

	mock.ExpectExec(q("DELETE FROM verification_codes WHERE id = $1")).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), id))
}
