package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered noteZipper user.
type Account struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the public view of an account. It never carries the password hash.
type Profile struct {
	ID        uuid.UUID `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"date"`
}

// Profile returns the public view of the account.
func (a *Account) Profile() Profile {
	return Profile{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Verified:  a.Verified,
		CreatedAt: a.CreatedAt,
	}
}
