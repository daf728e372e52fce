package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionToken is a signed bearer credential asserting an account identity.
type SessionToken struct {
	Token     string
	AccountID uuid.UUID
	TokenType string
	ExpiresIn int
	ExpiresAt time.Time
}
