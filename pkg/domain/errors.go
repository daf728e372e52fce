package domain

import "errors"

// Validation errors
var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidName     = errors.New("invalid name")
	ErrWeakPassword    = errors.New("password does not meet requirements")
	ErrInvalidPurpose  = errors.New("invalid code purpose")
	ErrMissingOTPField = errors.New("empty otp details are not allowed")
)

// Conflict errors
var (
	ErrEmailTaken = errors.New("email already registered")
)

// Not-found errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrCodeNotFound    = errors.New("verification code not found")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidResetGrant  = errors.New("invalid or missing password reset grant")
	ErrCodeSuperseded     = errors.New("verification code superseded")
)

// Authorization errors
var (
	ErrForbidden = errors.New("operation not permitted for this account")
)

// Delivery and throttling errors
var (
	ErrMailDispatchFailed = errors.New("mail dispatch failed")
	ErrTooManyRequests    = errors.New("too many code requests")
)

// Kind classifies an error for callers that translate errors into responses.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindAuth
	KindForbidden
	KindDispatch
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindDispatch:
		return "dispatch"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindValidation, []error{ErrValidation, ErrInvalidEmail, ErrInvalidName, ErrWeakPassword, ErrInvalidPurpose, ErrMissingOTPField}},
	{KindConflict, []error{ErrEmailTaken}},
	{KindNotFound, []error{ErrAccountNotFound, ErrCodeNotFound}},
	{KindAuth, []error{ErrInvalidCredentials, ErrEmailNotVerified, ErrInvalidToken, ErrInvalidResetGrant, ErrCodeSuperseded}},
	{KindForbidden, []error{ErrForbidden}},
	{KindDispatch, []error{ErrMailDispatchFailed}},
	{KindRateLimited, []error{ErrTooManyRequests}},
}

// KindOf returns the taxonomy class of err. Anything unrecognised, including
// store failures, is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindInternal
}

// FieldError describes a rejected input field. It matches both ErrValidation
// and its specific sentinel under errors.Is.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

// NewFieldError builds a FieldError for field with a human-readable message.
func NewFieldError(field string, err error, message string) *FieldError {
	return &FieldError{Field: field, Message: message, Err: err}
}

func (e *FieldError) Error() string {
	return e.Message
}

func (e *FieldError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}
