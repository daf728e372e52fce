package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// AuthenticatorConfig holds the account flow options.
type AuthenticatorConfig struct {
	PasswordPolicy PasswordPolicy
	EmailRules     EmailRules
	// RequireResetGrant makes ResetPassword demand a grant obtained by
	// verifying a password-reset code.
	RequireResetGrant bool
}

// LoginStatus is the kind of answer Login produced.
type LoginStatus int

const (
	// LoginPendingVerification means the account is unverified and a new
	// code was issued instead of a session.
	LoginPendingVerification LoginStatus = iota
	LoginAuthenticated
)

// LoginResult is returned by Login. Exactly one of Issuance and Session is set.
type LoginResult struct {
	Status   LoginStatus
	Account  *domain.Account
	Issuance *domain.Issuance
	Session  *domain.SessionToken
}

// VerifyResult is returned by VerifyCode.
type VerifyResult struct {
	Outcome domain.VerificationOutcome
	// AccountVerified is the account's verified flag after the check.
	AccountVerified bool
	// ResetGrant is set when a password-reset code was verified.
	ResetGrant          string
	ResetGrantExpiresAt time.Time
}

// Authenticator drives the account flows: registration, login, code
// resend and verification, and password recovery.
type Authenticator struct {
	config   AuthenticatorConfig
	accounts AccountStore
	otp      *OTPEngine
	sessions *SessionIssuer
	hasher   PasswordHasher
	now      func() time.Time
}

// NewAuthenticator creates a new Authenticator. A zero password policy falls
// back to DefaultPasswordPolicy.
func NewAuthenticator(
	config AuthenticatorConfig,
	accounts AccountStore,
	otp *OTPEngine,
	sessions *SessionIssuer,
	hasher PasswordHasher,
) *Authenticator {
	if config.PasswordPolicy == (PasswordPolicy{}) {
		config.PasswordPolicy = DefaultPasswordPolicy
	}
	return &Authenticator{
		config:   config,
		accounts: accounts,
		otp:      otp,
		sessions: sessions,
		hasher:   hasher,
		now:      time.Now,
	}
}

// Register creates an unverified account and mails it an email-verification
// code. When the mail cannot be sent the account and receipt still exist and
// the returned error wraps domain.ErrMailDispatchFailed.
func (a *Authenticator) Register(ctx context.Context, name, email, password string) (*domain.Issuance, error) {
	name = SanitizeName(name)
	email = NormalizeEmail(email)

	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := a.config.EmailRules.Validate(email); err != nil {
		return nil, err
	}
	if err := a.config.PasswordPolicy.ValidatePassword(password); err != nil {
		return nil, err
	}

	exists, err := a.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.now()
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return a.otp.Issue(ctx, account, domain.PurposeEmailVerification)
}

// Login authenticates a returning account. An unverified account gets a new
// verification code before its password is looked at, and never a session.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if err := a.config.EmailRules.Validate(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, domain.NewFieldError("password", domain.ErrValidation, "Password cannot be blank")
	}

	account, err := a.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if !account.Verified {
		issuance, err := a.otp.Issue(ctx, account, domain.PurposeEmailVerification)
		if issuance == nil {
			return nil, err
		}
		return &LoginResult{Status: LoginPendingVerification, Account: account, Issuance: issuance}, err
	}

	if !a.hasher.Verify(password, account.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	session, err := a.sessions.Mint(account)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Status: LoginAuthenticated, Account: account, Session: session}, nil
}

// Resend replaces the account's outstanding code with a new email-verification
// code. email must equal the stored address.
func (a *Authenticator) Resend(ctx context.Context, accountID uuid.UUID, email string) (*domain.Issuance, error) {
	email = NormalizeEmail(email)
	if accountID == uuid.Nil || email == "" {
		return nil, domain.NewFieldError("userId", domain.ErrValidation, "Empty user details are not allowed")
	}

	account, err := a.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Email != email {
		return nil, domain.ErrAccountNotFound
	}

	return a.otp.Issue(ctx, account, domain.PurposeEmailVerification)
}

// VerifyCode checks code against the account's outstanding code. An empty
// purpose accepts whichever code was last issued; a reset grant is minted
// when that code was a password-reset code.
func (a *Authenticator) VerifyCode(ctx context.Context, accountID uuid.UUID, code string, purpose domain.CodePurpose) (*VerifyResult, error) {
	if accountID == uuid.Nil || code == "" {
		return nil, domain.NewFieldError("otp", domain.ErrMissingOTPField, "Empty otp details are not allowed")
	}
	if purpose != "" && !purpose.Valid() {
		return nil, domain.NewFieldError("purpose", domain.ErrInvalidPurpose, "Unknown code purpose")
	}

	outcome, matched, err := a.otp.Redeem(ctx, accountID, code, purpose)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{Outcome: outcome}
	account, err := a.accounts.GetByID(ctx, accountID)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return result, nil
	case err != nil:
		return nil, err
	}
	result.AccountVerified = account.Verified

	if outcome == domain.OutcomeVerified && matched == domain.PurposePasswordReset {
		grant, expiresAt, err := a.sessions.MintResetGrant(account)
		if err != nil {
			return nil, err
		}
		result.ResetGrant = grant
		result.ResetGrantExpiresAt = expiresAt
	}
	return result, nil
}

// ForgotPassword mails a password-reset code to the account owning email.
func (a *Authenticator) ForgotPassword(ctx context.Context, email string) (*domain.Issuance, error) {
	email = NormalizeEmail(email)
	if err := a.config.EmailRules.Validate(email); err != nil {
		return nil, err
	}

	account, err := a.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return a.otp.Issue(ctx, account, domain.PurposePasswordReset)
}

// ResetPassword overwrites the password of the account owning email. A
// non-empty grant is always checked; an empty one is accepted unless
// RequireResetGrant is set. Outstanding codes are revoked on success.
func (a *Authenticator) ResetPassword(ctx context.Context, email, newPassword, grant string) error {
	email = NormalizeEmail(email)
	if err := a.config.EmailRules.Validate(email); err != nil {
		return err
	}
	if err := a.config.PasswordPolicy.ValidatePassword(newPassword); err != nil {
		return err
	}

	account, err := a.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if grant != "" || a.config.RequireResetGrant {
		if err := a.sessions.ValidateResetGrant(grant, account); err != nil {
			return err
		}
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := a.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return a.otp.Revoke(ctx, account.ID)
}
