package auth

import (
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

const (
	minNameLength = 2
	maxNameLength = 100
)

// SanitizeName trims a display name, strips control characters and escapes HTML.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = removeControlChars(name)
	return html.EscapeString(name)
}

// ValidateName checks an already sanitized display name.
func ValidateName(name string) error {
	return ValidateStringLength("name", domain.ErrInvalidName, name, minNameLength, maxNameLength)
}

// ValidateStringLength checks that value has between min and max characters.
// A zero bound is not enforced. Failures are *domain.FieldError values
// wrapping sentinel.
func ValidateStringLength(field string, sentinel error, value string, min, max int) error {
	length := utf8.RuneCountInString(value)

	if min > 0 && length < min {
		return domain.NewFieldError(field, sentinel, fmt.Sprintf("Enter a valid %s", field))
	}
	if max > 0 && length > max {
		return domain.NewFieldError(field, sentinel, fmt.Sprintf("%s must be at most %d characters long", field, max))
	}
	return nil
}

// removeControlChars removes control characters, including newlines.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
