package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// AccountStore persists accounts.
type AccountStore interface {
	// Create inserts a new account. It returns domain.ErrEmailTaken when the
	// email is already registered.
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Update overwrites name, email and verified flag.
	Update(ctx context.Context, account *domain.Account) error
	// UpdateVerified sets the flag outside a code check. The OTP flow sets it
	// through CodeLedger.Consume instead, atomically with the code removal.
	UpdateVerified(ctx context.Context, id uuid.UUID, verified bool) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	// Delete removes the account and every verification code it owns.
	Delete(ctx context.Context, id uuid.UUID) error
}

// CodeLedger persists verification codes. Implementations serialize the
// mutating operations per account.
type CodeLedger interface {
	// Replace deletes every code of code.AccountID and inserts code, atomically.
	Replace(ctx context.Context, code *domain.VerificationCode) error
	// FindAllForAccount returns the account's codes, newest first.
	FindAllForAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.VerificationCode, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForAccount(ctx context.Context, accountID uuid.UUID) error
	// Consume deletes code and every other code of its account and marks the
	// account verified, atomically. It returns domain.ErrCodeSuperseded when
	// code no longer exists.
	Consume(ctx context.Context, code *domain.VerificationCode) error
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// RateLimiter decides whether another event for key fits into limit events per window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
	Reset(ctx context.Context, key string) error
}
