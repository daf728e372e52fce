package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// VerificationCodesRepository handles verification code persistence.
// Mutations that touch an account's codes lock the account row first, so
// issuance and consumption for one account are serialized.
type VerificationCodesRepository struct {
	db *sql.DB
}

// NewVerificationCodesRepository creates a new verification codes repository.
func NewVerificationCodesRepository(db *sql.DB) *VerificationCodesRepository {
	return &VerificationCodesRepository{db: db}
}

// Replace deletes every code of the account and inserts code.
func (r *VerificationCodesRepository) Replace(ctx context.Context, code *domain.VerificationCode) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockAccount(ctx, tx, code.AccountID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM verification_codes WHERE account_id = $1`, code.AccountID); err != nil {
			return err
		}
		query := `
			INSERT INTO verification_codes (id, account_id, code_hash, purpose, issued_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err := tx.ExecContext(ctx, query,
			code.ID, code.AccountID, code.CodeHash, string(code.Purpose), code.IssuedAt, code.ExpiresAt,
		)
		return err
	})
}

// FindAllForAccount returns the account's codes, newest first.
func (r *VerificationCodesRepository) FindAllForAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.VerificationCode, error) {
	query := `
		SELECT id, account_id, code_hash, purpose, issued_at, expires_at
		FROM verification_codes
		WHERE account_id = $1
		ORDER BY issued_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []*domain.VerificationCode
	for rows.Next() {
		code := &domain.VerificationCode{}
		var purpose string
		if err := rows.Scan(&code.ID, &code.AccountID, &code.CodeHash, &purpose, &code.IssuedAt, &code.ExpiresAt); err != nil {
			return nil, err
		}
		code.Purpose = domain.CodePurpose(purpose)
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Delete removes a single code. Deleting a missing code is not an error.
func (r *VerificationCodesRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE id = $1`, id)
	return err
}

// DeleteAllForAccount removes every code of the account.
func (r *VerificationCodesRepository) DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE account_id = $1`, accountID)
	return err
}

// Consume deletes code and the rest of the account's codes and marks the
// account verified.
func (r *VerificationCodesRepository) Consume(ctx context.Context, code *domain.VerificationCode) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockAccount(ctx, tx, code.AccountID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM verification_codes WHERE id = $1`, code.ID)
		if err := expectAffected(result, err, domain.ErrCodeSuperseded); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM verification_codes WHERE account_id = $1`, code.AccountID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE accounts SET verified = TRUE, updated_at = NOW() WHERE id = $1`, code.AccountID)
		return err
	})
}

func lockAccount(ctx context.Context, tx *sql.Tx, accountID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	return err
}
