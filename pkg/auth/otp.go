package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// OTPConfig controls code issuance.
type OTPConfig struct {
	TTL      time.Duration
	CodeMin  int
	CodeMax  int
	HashCost int
	// RollbackOnDispatchFailure deletes a freshly issued code when the mail
	// carrying it could not be sent.
	RollbackOnDispatchFailure bool
	// IssueLimit caps issuances per account within IssueWindow. Zero disables it.
	IssueLimit  int
	IssueWindow time.Duration
}

// DefaultOTPConfig issues four digit codes valid for one hour.
var DefaultOTPConfig = OTPConfig{
	TTL:         time.Hour,
	CodeMin:     1000,
	CodeMax:     9999,
	HashCost:    bcrypt.DefaultCost,
	IssueWindow: time.Hour,
}

// OTPEngine issues and checks one-time codes. Codes are stored only as
// bcrypt hashes and each account holds at most one active code.
type OTPEngine struct {
	config  OTPConfig
	ledger  CodeLedger
	mailer  Mailer
	limiter RateLimiter
	now     func() time.Time
}

// NewOTPEngine creates an OTPEngine. limiter may be nil when
// config.IssueLimit is zero.
func NewOTPEngine(config OTPConfig, ledger CodeLedger, mailer Mailer, limiter RateLimiter) *OTPEngine {
	if config.TTL <= 0 {
		config.TTL = DefaultOTPConfig.TTL
	}
	if config.CodeMin == 0 && config.CodeMax == 0 {
		config.CodeMin, config.CodeMax = DefaultOTPConfig.CodeMin, DefaultOTPConfig.CodeMax
	}
	if config.HashCost == 0 {
		config.HashCost = DefaultOTPConfig.HashCost
	}
	if config.IssueWindow <= 0 {
		config.IssueWindow = DefaultOTPConfig.IssueWindow
	}
	return &OTPEngine{
		config:  config,
		ledger:  ledger,
		mailer:  mailer,
		limiter: limiter,
		now:     time.Now,
	}
}

// Issue replaces any outstanding code of account with a fresh one and mails
// it to the account's email address.
//
// When the mail cannot be sent the receipt is still returned together with an
// error wrapping domain.ErrMailDispatchFailed.
func (e *OTPEngine) Issue(ctx context.Context, account *domain.Account, purpose domain.CodePurpose) (*domain.Issuance, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPurpose, purpose)
	}

	if e.config.IssueLimit > 0 && e.limiter != nil {
		allowed, _, err := e.limiter.Allow(ctx, "otp:"+account.ID.String(), e.config.IssueLimit, e.config.IssueWindow)
		if err != nil {
			return nil, fmt.Errorf("failed to check issuance limit: %w", err)
		}
		if !allowed {
			return nil, domain.ErrTooManyRequests
		}
	}

	code, err := GenerateCode(e.config.CodeMin, e.config.CodeMax)
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), e.config.HashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}

	now := e.now()
	record := &domain.VerificationCode{
		ID:        uuid.New(),
		AccountID: account.ID,
		CodeHash:  string(hash),
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(e.config.TTL),
	}

	if err := e.ledger.Replace(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store code: %w", err)
	}

	issuance := &domain.Issuance{
		AccountID: account.ID,
		Email:     account.Email,
		Purpose:   purpose,
		IssuedAt:  record.IssuedAt,
		ExpiresAt: record.ExpiresAt,
	}

	subject, body := codeMessage(purpose, code, e.config.TTL)
	if err := e.mailer.Send(ctx, account.Email, subject, body); err != nil {
		if e.config.RollbackOnDispatchFailure {
			if delErr := e.ledger.Delete(ctx, record.ID); delErr != nil {
				return issuance, fmt.Errorf("%w: %w (rollback failed: %v)", domain.ErrMailDispatchFailed, err, delErr)
			}
		}
		return issuance, fmt.Errorf("%w: %w", domain.ErrMailDispatchFailed, err)
	}

	return issuance, nil
}

// Verify checks candidate against the account's latest code.
// Expiry is checked before the code itself, so an expired code is reported
// as expired even when candidate is correct. A returned error always means
// the ledger failed.
func (e *OTPEngine) Verify(ctx context.Context, accountID uuid.UUID, candidate string, purpose domain.CodePurpose) (domain.VerificationOutcome, error) {
	outcome, _, err := e.Redeem(ctx, accountID, candidate, purpose)
	return outcome, err
}

// Redeem is Verify that also reports the purpose of the code it looked at.
// An empty purpose accepts a code of either purpose; a named purpose must
// match the stored one.
func (e *OTPEngine) Redeem(ctx context.Context, accountID uuid.UUID, candidate string, purpose domain.CodePurpose) (domain.VerificationOutcome, domain.CodePurpose, error) {
	codes, err := e.ledger.FindAllForAccount(ctx, accountID)
	if err != nil {
		return domain.OutcomeNoActiveCode, "", fmt.Errorf("failed to load codes: %w", err)
	}
	if len(codes) == 0 {
		return domain.OutcomeNoActiveCode, "", nil
	}

	latest := codes[0]
	if latest.IsExpired(e.now()) {
		// By id, so a code issued concurrently survives.
		if err := e.ledger.Delete(ctx, latest.ID); err != nil {
			return domain.OutcomeExpired, latest.Purpose, fmt.Errorf("failed to delete expired code: %w", err)
		}
		return domain.OutcomeExpired, latest.Purpose, nil
	}

	if (purpose != "" && latest.Purpose != purpose) || !isCodeShaped(candidate) {
		return domain.OutcomeMismatch, latest.Purpose, nil
	}

	err = bcrypt.CompareHashAndPassword([]byte(latest.CodeHash), []byte(candidate))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domain.OutcomeMismatch, latest.Purpose, nil
	}
	if err != nil {
		return domain.OutcomeMismatch, latest.Purpose, fmt.Errorf("failed to compare code: %w", err)
	}

	if err := e.ledger.Consume(ctx, latest); err != nil {
		if errors.Is(err, domain.ErrCodeSuperseded) {
			return domain.OutcomeMismatch, latest.Purpose, nil
		}
		return domain.OutcomeMismatch, latest.Purpose, fmt.Errorf("failed to consume code: %w", err)
	}

	return domain.OutcomeVerified, latest.Purpose, nil
}

// Revoke deletes every outstanding code of the account.
func (e *OTPEngine) Revoke(ctx context.Context, accountID uuid.UUID) error {
	if err := e.ledger.DeleteAllForAccount(ctx, accountID); err != nil {
		return fmt.Errorf("failed to revoke codes: %w", err)
	}
	return nil
}

// isCodeShaped rejects input bcrypt would never match, such as empty or
// oversized strings.
func isCodeShaped(candidate string) bool {
	if candidate == "" || len(candidate) > 72 {
		return false
	}
	_, err := strconv.ParseUint(candidate, 10, 64)
	return err == nil
}
