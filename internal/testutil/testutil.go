// Package testutil wires the account services against the in-memory store
// for HTTP tests.
package testutil

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/priyanshp28/noteZipper/pkg/auth"
	"github.com/priyanshp28/noteZipper/pkg/repository/memory"
)

// Mail is one captured message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer records messages instead of sending them. Err, when set, is
// returned from every Send after the message is recorded.
type Mailer struct {
	mu   sync.Mutex
	sent []Mail
	Err  error
}

// Send implements auth.Mailer.
func (m *Mailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Mail{To: to, Subject: subject, Body: body})
	return m.Err
}

// Count returns the number of recorded messages.
func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// Last returns the most recent message.
func (m *Mailer) Last(t testing.TB) Mail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

var codeInBody = regexp.MustCompile(`<b>(\d+)</b>`)

// LastCode extracts the code from the most recent message.
func (m *Mailer) LastCode(t testing.TB) string {
	t.Helper()
	body := m.Last(t).Body
	match := codeInBody.FindStringSubmatch(body)
	if match == nil {
		t.Fatalf("no code in mail body %q", body)
	}
	return match[1]
}

// Services is a fully wired set of account services.
type Services struct {
	Store         *memory.Store
	Mailer        *Mailer
	Sessions      *auth.SessionIssuer
	OTP           *auth.OTPEngine
	Authenticator *auth.Authenticator
	Accounts      *auth.AccountService
}

// Option adjusts the configuration before the services are built.
type Option func(*auth.OTPConfig, *auth.AuthenticatorConfig)

// RequireResetGrant enables the hardened password reset flow.
func RequireResetGrant() Option {
	return func(_ *auth.OTPConfig, c *auth.AuthenticatorConfig) {
		c.RequireResetGrant = true
	}
}

// IssueLimit caps code issuances per account.
func IssueLimit(n int) Option {
	return func(c *auth.OTPConfig, _ *auth.AuthenticatorConfig) {
		c.IssueLimit = n
	}
}

// NewServices builds the services with cheap hashing parameters.
func NewServices(t testing.TB, opts ...Option) *Services {
	t.Helper()

	otpConfig := auth.DefaultOTPConfig
	otpConfig.HashCost = bcrypt.MinCost
	authConfig := auth.AuthenticatorConfig{}
	for _, opt := range opts {
		opt(&otpConfig, &authConfig)
	}

	s := &Services{
		Store:  memory.NewStore(),
		Mailer: &Mailer{},
		Sessions: auth.NewSessionIssuer(auth.SessionConfig{
			JWTSecret: []byte("test-secret"),
			Issuer:    "notezipper-test",
		}),
	}
	s.OTP = auth.NewOTPEngine(otpConfig, s.Store.Codes(), s.Mailer, auth.NewMemoryRateLimiter())
	hasher := auth.NewArgon2Hasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	s.Authenticator = auth.NewAuthenticator(authConfig, s.Store.Accounts(), s.OTP, s.Sessions, hasher)
	s.Accounts = auth.NewAccountService(authConfig.EmailRules, s.Store.Accounts(), s.OTP)
	return s
}
