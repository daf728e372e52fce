// Package idm embeds the noteZipper account service in another application.
//
// Setup:
//
//  1. Provide a *sql.DB (schema is created with Migrate) or leave DB nil for
//     an in-memory store
//  2. Provide a Mailer that delivers the one-time codes
//  3. Create an IDM instance and mount its routes
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	accounts, err := idm.New(ctx, idm.Config{
//	    DB:        db,
//	    Migrate:   true,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	    Mailer:    myMailer,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	r := chi.NewRouter()
//	r.Mount("/api/auth", accounts.Router())
//	http.ListenAndServe(":8080", r)
package idm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	httpserver "github.com/priyanshp28/noteZipper/internal/http"
	"github.com/priyanshp28/noteZipper/internal/http/middleware"
	"github.com/priyanshp28/noteZipper/internal/httputil"
	"github.com/priyanshp28/noteZipper/pkg/auth"
	"github.com/priyanshp28/noteZipper/pkg/domain"
	"github.com/priyanshp28/noteZipper/pkg/repository"
	"github.com/priyanshp28/noteZipper/pkg/repository/memory"
)

// Config holds the configuration for the IDM library.
type Config struct {
	// DB is the Postgres connection. Nil keeps accounts in memory.
	DB *sql.DB

	// Migrate applies the embedded schema migrations to DB on New.
	Migrate bool

	// JWTSecret is the secret key for signing session tokens (required, min 32 chars).
	JWTSecret string

	// JWTIssuer is the issuer claim in session tokens (default: "notezipper").
	JWTIssuer string

	// SessionTokenTTL is the lifetime of session tokens (default: 24 hours).
	SessionTokenTTL time.Duration

	// Mailer delivers one-time codes (required).
	Mailer auth.Mailer

	// RequireResetGrant makes password reset demand a verified reset code.
	RequireResetGrant bool

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// IDM is an embedded account service instance.
type IDM struct {
	config        Config
	sessions      *auth.SessionIssuer
	authenticator *auth.Authenticator
	accounts      *auth.AccountService
}

// New creates a new IDM instance with the given configuration.
// With a DB and Migrate unset, the schema must already exist.
func New(ctx context.Context, cfg Config) (*IDM, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	var (
		accountStore auth.AccountStore
		ledger       auth.CodeLedger
	)
	if cfg.DB == nil {
		store := memory.NewStore()
		accountStore, ledger = store.Accounts(), store.Codes()
	} else {
		if cfg.Migrate {
			if err := repository.Migrate(ctx, cfg.DB); err != nil {
				return nil, fmt.Errorf("idm: %w", err)
			}
		} else if err := validateSchema(ctx, cfg.DB); err != nil {
			return nil, err
		}
		accountStore = repository.NewAccountsRepository(cfg.DB)
		ledger = repository.NewVerificationCodesRepository(cfg.DB)
	}

	otp := auth.NewOTPEngine(auth.DefaultOTPConfig, ledger, cfg.Mailer, nil)
	sessions := auth.NewSessionIssuer(auth.SessionConfig{
		TokenTTL:  cfg.SessionTokenTTL,
		JWTSecret: []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
	})
	authConfig := auth.AuthenticatorConfig{RequireResetGrant: cfg.RequireResetGrant}

	return &IDM{
		config:        cfg,
		sessions:      sessions,
		authenticator: auth.NewAuthenticator(authConfig, accountStore, otp, sessions, auth.NewArgon2Hasher(auth.DefaultArgon2Params)),
		accounts:      auth.NewAccountService(authConfig.EmailRules, accountStore, otp),
	}, nil
}

// Router returns a chi router with all account routes.
// Mount this on your main router:
//
//	r := chi.NewRouter()
//	r.Mount("/api/auth", accounts.Router())
//
// Routes:
//
//	POST   /createuser       - Register and send a verification code
//	POST   /login            - Login, or resend a code to unverified accounts
//	POST   /verifyOTP        - Check a one-time code
//	POST   /resendOTP        - Send a new verification code
//	POST   /forgetpassword   - Send a password reset code
//	POST   /resetpassword    - Set a new password
//	POST   /getuser          - Current account profile (protected)
//	PUT    /editUser/{id}    - Update name or email (protected)
//	DELETE /deleteUser/{id}  - Delete the account (protected)
//	POST   /finduser         - Look up a profile by email (protected)
func (i *IDM) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging(i.config.Logger))

	r.Mount("/", httpserver.AuthRoutes(httpserver.RouterConfig{
		Logger:         i.config.Logger,
		Authenticator:  i.authenticator,
		AccountService: i.accounts,
		SessionIssuer:  i.sessions,
	}))

	return r
}

// Authenticator returns the account flow service for advanced usage.
func (i *IDM) Authenticator() *auth.Authenticator {
	return i.authenticator
}

// AuthMiddleware returns middleware that validates session tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(accounts.AuthMiddleware())
//	    r.Get("/notes", handler)
//	})
func (i *IDM) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(i.sessions)
}

// GetAccountID extracts the account ID from a request.
// Use after AuthMiddleware.
func GetAccountID(r *http.Request) (uuid.UUID, bool) {
	return middleware.GetAccountID(r.Context())
}

// GetAccount retrieves the signed-in account's profile.
// Use after AuthMiddleware.
func (i *IDM) GetAccount(r *http.Request) (*domain.Profile, error) {
	id, ok := middleware.GetAccountID(r.Context())
	if !ok {
		return nil, errors.New("idm: request is not authenticated")
	}

	account, err := i.accounts.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}

	profile := account.Profile()
	return &profile, nil
}

// HealthHandler returns a simple health check handler.
func (i *IDM) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Routes registers all account routes on an http.ServeMux with the given prefix:
//
//	mux := http.NewServeMux()
//	accounts.Routes(mux, "/api/auth")
func (i *IDM) Routes(mux *http.ServeMux, prefix string) {
	mux.Handle(prefix+"/", http.StripPrefix(prefix, i.Router()))
}

func validateConfig(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("idm: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("idm: JWTSecret must be at least 32 characters")
	}
	if cfg.Mailer == nil {
		return errors.New("idm: Mailer is required")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "notezipper"
	}
	if cfg.SessionTokenTTL == 0 {
		cfg.SessionTokenTTL = auth.DefaultSessionTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(ctx context.Context, db *sql.DB) error {
	requiredTables := []string{"accounts", "verification_codes"}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("idm: missing table '%s' - set Migrate or run the migrations first", table)
		}
		if err != nil {
			return fmt.Errorf("idm: failed to check schema: %w", err)
		}
	}

	return nil
}
