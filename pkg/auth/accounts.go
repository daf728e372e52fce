package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// AccountService reads and edits account profiles on behalf of a signed-in caller.
type AccountService struct {
	rules    EmailRules
	accounts AccountStore
	otp      *OTPEngine
	now      func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(rules EmailRules, accounts AccountStore, otp *OTPEngine) *AccountService {
	return &AccountService{rules: rules, accounts: accounts, otp: otp, now: time.Now}
}

// Get returns the account with the given id.
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// Find looks an account up by email.
func (s *AccountService) Find(ctx context.Context, email string) (*domain.Account, error) {
	email = NormalizeEmail(email)
	if err := s.rules.Validate(email); err != nil {
		return nil, err
	}
	return s.accounts.GetByEmail(ctx, email)
}

// UpdateResult is returned by Update.
type UpdateResult struct {
	Account *domain.Account
	// Issuance is set when the email changed and a new verification code was sent.
	Issuance *domain.Issuance
}

// Update changes the name and email of the caller's own account. Empty
// values are left unchanged. A new email address unverifies the account and
// gets a fresh verification code.
func (s *AccountService) Update(ctx context.Context, callerID, id uuid.UUID, name, email string) (*UpdateResult, error) {
	if callerID != id {
		return nil, domain.ErrForbidden
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		name = SanitizeName(name)
		if err := ValidateName(name); err != nil {
			return nil, err
		}
		account.Name = name
	}

	emailChanged := false
	if email = NormalizeEmail(email); email != "" && email != account.Email {
		if err := s.rules.Validate(email); err != nil {
			return nil, err
		}
		exists, err := s.accounts.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			return nil, domain.ErrEmailTaken
		}
		account.Email = email
		account.Verified = false
		emailChanged = true
	}

	account.UpdatedAt = s.now()
	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	result := &UpdateResult{Account: account}
	if emailChanged {
		issuance, err := s.otp.Issue(ctx, account, domain.PurposeEmailVerification)
		result.Issuance = issuance
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// Delete removes the caller's own account together with its codes.
func (s *AccountService) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	if callerID != id {
		return domain.ErrForbidden
	}
	if _, err := s.accounts.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
