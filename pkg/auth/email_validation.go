package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// Common disposable email domains to block (can be extended)
var disposableDomains = map[string]bool{
	"tempmail.com":     true,
	"10minutemail.com": true,
	"guerrillamail.com": true,
	"mailinator.com":   true,
	"throwaway.email":  true,
}

// Email validation regex (stricter than RFC 5322 for practical use)
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail validates an email address for format and length.
// Failures are *domain.FieldError values matching domain.ErrInvalidEmail.
func ValidateEmail(email string, strict bool, blockDisposable bool) error {
	if email == "" {
		return invalidEmail("Enter a valid Email")
	}

	if len(email) > maxEmailLength {
		return invalidEmail(fmt.Sprintf("Email is too long (max %d characters)", maxEmailLength))
	}

	// Normalize for validation
	normalized := NormalizeEmail(email)

	// Use mail.ParseAddress for basic RFC 5322 compliance
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return invalidEmail("Enter a valid Email")
	}

	// Apply stricter validation if requested
	if strict {
		if !emailRegex.MatchString(addr.Address) {
			return invalidEmail("Enter a valid Email")
		}
	}

	// Check for disposable email domains if requested
	if blockDisposable {
		domain := getDomain(addr.Address)
		if disposableDomains[strings.ToLower(domain)] {
			return invalidEmail("Disposable email addresses are not allowed")
		}
	}

	return nil
}

// NormalizeEmail trims surrounding whitespace. Addresses are matched
// case-sensitively, so the case is preserved.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func invalidEmail(msg string) error {
	return domain.NewFieldError("email", domain.ErrInvalidEmail, msg)
}

// getDomain extracts the domain from an email address.
func getDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// EmailRules selects the optional email checks applied to user input.
type EmailRules struct {
	Strict          bool
	BlockDisposable bool
}

// Validate runs ValidateEmail with the configured checks.
func (r EmailRules) Validate(email string) error {
	return ValidateEmail(email, r.Strict, r.BlockDisposable)
}
