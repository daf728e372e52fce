package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

const (
	// Default token lifetimes
	DefaultSessionTokenTTL = 24 * time.Hour
	DefaultResetGrantTTL   = 15 * time.Minute

	resetGrantAudience = "password_reset"
)

// SessionConfig holds session token configuration.
type SessionConfig struct {
	TokenTTL      time.Duration
	ResetGrantTTL time.Duration
	JWTSecret     []byte
	Issuer        string
}

// SessionIssuer mints and validates signed session tokens. Tokens are not
// persisted.
type SessionIssuer struct {
	config SessionConfig
	now    func() time.Time
}

// NewSessionIssuer creates a new session issuer.
func NewSessionIssuer(config SessionConfig) *SessionIssuer {
	if config.TokenTTL == 0 {
		config.TokenTTL = DefaultSessionTokenTTL
	}
	if config.ResetGrantTTL == 0 {
		config.ResetGrantTTL = DefaultResetGrantTTL
	}
	return &SessionIssuer{config: config, now: time.Now}
}

// LegacyUser is the {"user": {"id": ...}} claim older clients read.
type LegacyUser struct {
	ID string `json:"id"`
}

// SessionClaims represents the claims in a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string      `json:"email,omitempty"`
	User  *LegacyUser `json:"user,omitempty"`
	// Credential fingerprints the password hash a reset grant was minted
	// against.
	Credential string `json:"crd,omitempty"`
}

// AccountID returns the account the token was minted for.
func (c *SessionClaims) AccountID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return id, nil
}

// Mint signs a session token for a verified account.
func (s *SessionIssuer) Mint(account *domain.Account) (*domain.SessionToken, error) {
	if !account.Verified {
		return nil, domain.ErrEmailNotVerified
	}

	now := s.now()
	expiresAt := now.Add(s.config.TokenTTL)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
		Email: account.Email,
		User:  &LegacyUser{ID: account.ID.String()},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &domain.SessionToken{
		Token:     signed,
		AccountID: account.ID,
		TokenType: "Bearer",
		ExpiresIn: int(s.config.TokenTTL.Seconds()),
		ExpiresAt: expiresAt,
	}, nil
}

// Validate checks a session token and returns its claims. Reset grants are
// rejected.
func (s *SessionIssuer) Validate(tokenString string) (*SessionClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	for _, aud := range claims.Audience {
		if aud == resetGrantAudience {
			return nil, domain.ErrInvalidToken
		}
	}
	return claims, nil
}

// MintResetGrant signs a short-lived grant proving the account just passed a
// password-reset code check. The grant is bound to the account's current
// password hash, so it stops validating once the password changes.
func (s *SessionIssuer) MintResetGrant(account *domain.Account) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.ResetGrantTTL)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID.String(),
			Audience:  jwt.ClaimStrings{resetGrantAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
		Credential: credentialFingerprint(account.PasswordHash),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.JWTSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign reset grant: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateResetGrant checks that grant is a valid reset grant for account
// and that the account's password has not changed since it was minted.
func (s *SessionIssuer) ValidateResetGrant(grant string, account *domain.Account) error {
	if grant == "" {
		return domain.ErrInvalidResetGrant
	}
	claims, err := s.parse(grant, jwt.WithAudience(resetGrantAudience))
	if err != nil {
		return domain.ErrInvalidResetGrant
	}
	if claims.Subject != account.ID.String() {
		return domain.ErrInvalidResetGrant
	}
	want := credentialFingerprint(account.PasswordHash)
	if subtle.ConstantTimeCompare([]byte(claims.Credential), []byte(want)) != 1 {
		return domain.ErrInvalidResetGrant
	}
	return nil
}

func credentialFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}

func (s *SessionIssuer) parse(tokenString string, opts ...jwt.ParserOption) (*SessionClaims, error) {
	opts = append(opts, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.JWTSecret, nil
	}, opts...)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}
