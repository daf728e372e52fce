package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/priyanshp28/noteZipper/pkg/repository/memory"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *captureMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return m.err
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *captureMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

var codeInBody = regexp.MustCompile(`<b>(\d+)</b>`)

// lastCode extracts the code from the most recent mail.
func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	match := codeInBody.FindStringSubmatch(m.last(t).Body)
	if match == nil {
		t.Fatalf("no code in mail body %q", m.last(t).Body)
	}
	return match[1]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store    *memory.Store
	mailer   *captureMailer
	clock    *fakeClock
	otp      *OTPEngine
	sessions *SessionIssuer
	auth     *Authenticator
	profiles *AccountService
}

type harnessOption func(*OTPConfig, *AuthenticatorConfig)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	otpConfig := DefaultOTPConfig
	otpConfig.HashCost = bcrypt.MinCost
	authConfig := AuthenticatorConfig{}
	for _, opt := range opts {
		opt(&otpConfig, &authConfig)
	}

	h := &harness{
		store:  memory.NewStore(),
		mailer: &captureMailer{},
		clock:  newFakeClock(),
	}
	h.otp = NewOTPEngine(otpConfig, h.store.Codes(), h.mailer, NewMemoryRateLimiter())
	h.otp.now = h.clock.Now
	h.sessions = NewSessionIssuer(SessionConfig{JWTSecret: []byte("test-secret"), Issuer: "notezipper-test"})
	h.sessions.now = h.clock.Now
	h.auth = NewAuthenticator(authConfig, h.store.Accounts(), h.otp, h.sessions, NewArgon2Hasher(testArgon2Params))
	h.auth.now = h.clock.Now
	h.profiles = NewAccountService(authConfig.EmailRules, h.store.Accounts(), h.otp)
	h.profiles.now = h.clock.Now
	return h
}

var errSMTPDown = errors.New("smtp: connection refused")
