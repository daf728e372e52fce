package domain

import (
	"time"

	"github.com/google/uuid"
)

// CodePurpose tags what a one-time code may be used for.
type CodePurpose string

const (
	PurposeEmailVerification CodePurpose = "email_verification"
	PurposePasswordReset     CodePurpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p CodePurpose) Valid() bool {
	return p == PurposeEmailVerification || p == PurposePasswordReset
}

// VerificationCode is a ledger record for an outstanding one-time code.
// Only the hash of the code is stored.
type VerificationCode struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	CodeHash  string
	Purpose   CodePurpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the code is past its expiry at the given instant.
// A code is still valid at exactly ExpiresAt.
func (c *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Issuance is the receipt handed back after a code has been issued.
type Issuance struct {
	AccountID uuid.UUID
	Email     string
	Purpose   CodePurpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerificationOutcome is the result of checking a candidate code.
type VerificationOutcome int

const (
	OutcomeNoActiveCode VerificationOutcome = iota
	OutcomeExpired
	OutcomeMismatch
	OutcomeVerified
)

func (o VerificationOutcome) String() string {
	switch o {
	case OutcomeNoActiveCode:
		return "no_active_code"
	case OutcomeExpired:
		return "expired"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeVerified:
		return "verified"
	default:
		return "unknown"
	}
}
