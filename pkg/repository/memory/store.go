// Package memory keeps accounts and verification codes in process memory.
// It backs tests and single-instance deployments without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/priyanshp28/noteZipper/pkg/domain"
)

// Store holds accounts and their verification codes. A single mutex guards
// both, so every ledger mutation is atomic with respect to the account.
type Store struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]domain.Account
	byEmail  map[string]uuid.UUID
	codes    map[uuid.UUID][]domain.VerificationCode
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]domain.Account),
		byEmail:  make(map[string]uuid.UUID),
		codes:    make(map[uuid.UUID][]domain.VerificationCode),
	}
}

// Accounts returns the account view of the store.
func (s *Store) Accounts() *Accounts {
	return &Accounts{s: s}
}

// Codes returns the verification code view of the store.
func (s *Store) Codes() *Codes {
	return &Codes{s: s}
}

// Accounts implements account persistence on a Store.
type Accounts struct {
	s *Store
}

func (a *Accounts) Create(_ context.Context, account *domain.Account) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	if _, ok := a.s.byEmail[account.Email]; ok {
		return domain.ErrEmailTaken
	}
	a.s.accounts[account.ID] = *account
	a.s.byEmail[account.Email] = account.ID
	return nil
}

func (a *Accounts) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	account, ok := a.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &account, nil
}

func (a *Accounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	id, ok := a.s.byEmail[email]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	account := a.s.accounts[id]
	return &account, nil
}

func (a *Accounts) ExistsByEmail(_ context.Context, email string) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	_, ok := a.s.byEmail[email]
	return ok, nil
}

func (a *Accounts) Update(_ context.Context, account *domain.Account) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	current, ok := a.s.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if current.Email != account.Email {
		if _, taken := a.s.byEmail[account.Email]; taken {
			return domain.ErrEmailTaken
		}
		delete(a.s.byEmail, current.Email)
		a.s.byEmail[account.Email] = account.ID
	}

	current.Name = account.Name
	current.Email = account.Email
	current.Verified = account.Verified
	current.UpdatedAt = account.UpdatedAt
	a.s.accounts[account.ID] = current
	return nil
}

func (a *Accounts) UpdateVerified(_ context.Context, id uuid.UUID, verified bool) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	account, ok := a.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Verified = verified
	a.s.accounts[id] = account
	return nil
}

func (a *Accounts) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	account, ok := a.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.PasswordHash = hash
	a.s.accounts[id] = account
	return nil
}

func (a *Accounts) Delete(_ context.Context, id uuid.UUID) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	account, ok := a.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	delete(a.s.byEmail, account.Email)
	delete(a.s.accounts, id)
	delete(a.s.codes, id)
	return nil
}

// Codes implements the verification code ledger on a Store.
type Codes struct {
	s *Store
}

func (c *Codes) Replace(_ context.Context, code *domain.VerificationCode) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.accounts[code.AccountID]; !ok {
		return domain.ErrAccountNotFound
	}
	c.s.codes[code.AccountID] = []domain.VerificationCode{*code}
	return nil
}

func (c *Codes) FindAllForAccount(_ context.Context, accountID uuid.UUID) ([]*domain.VerificationCode, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	stored := c.s.codes[accountID]
	codes := make([]*domain.VerificationCode, 0, len(stored))
	for i := range stored {
		code := stored[i]
		codes = append(codes, &code)
	}
	sort.SliceStable(codes, func(i, j int) bool {
		return codes[i].IssuedAt.After(codes[j].IssuedAt)
	})
	return codes, nil
}

func (c *Codes) Delete(_ context.Context, id uuid.UUID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	for accountID, codes := range c.s.codes {
		for i := range codes {
			if codes[i].ID == id {
				c.s.setCodes(accountID, append(codes[:i:i], codes[i+1:]...))
				return nil
			}
		}
	}
	return nil
}

func (c *Codes) DeleteAllForAccount(_ context.Context, accountID uuid.UUID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	delete(c.s.codes, accountID)
	return nil
}

func (c *Codes) Consume(_ context.Context, code *domain.VerificationCode) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	found := false
	for _, stored := range c.s.codes[code.AccountID] {
		if stored.ID == code.ID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrCodeSuperseded
	}

	account, ok := c.s.accounts[code.AccountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Verified = true
	c.s.accounts[code.AccountID] = account
	delete(c.s.codes, code.AccountID)
	return nil
}

func (s *Store) setCodes(accountID uuid.UUID, codes []domain.VerificationCode) {
	if len(codes) == 0 {
		delete(s.codes, accountID)
		return
	}
	s.codes[accountID] = codes
}
