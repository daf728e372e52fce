package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr      string        `env:"SERVER_ADDR" envDefault:"0.0.0.0"`
	ServerPort      int           `env:"SERVER_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	// Storage selects where accounts and codes live.
	Storage  string `env:"STORAGE" envDefault:"postgres"`
	Database DatabaseConfig

	// JWT
	JWTSecret       string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"notezipper"`
	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`
	ResetGrantTTL   time.Duration `env:"RESET_GRANT_TTL" envDefault:"15m"`
	// RequireResetGrant makes password reset demand a verified reset code.
	RequireResetGrant bool `env:"REQUIRE_RESET_GRANT" envDefault:"false"`

	OTP             OTPConfig
	Redis           RedisConfig
	SMTP            SMTPConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig
	Validation      ValidationConfig
	PasswordPolicy  PasswordPolicyConfig
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name            string        `env:"DB_NAME" envDefault:"notezipper"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns the connection URL understood by both lib/pq and pgx.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// OTPConfig controls one-time code issuance.
type OTPConfig struct {
	TTL                       time.Duration `env:"OTP_TTL" envDefault:"1h"`
	Min                       int           `env:"OTP_MIN" envDefault:"1000"`
	Max                       int           `env:"OTP_MAX" envDefault:"9999"`
	HashCost                  int           `env:"OTP_HASH_COST" envDefault:"10"`
	RollbackOnDispatchFailure bool          `env:"OTP_ROLLBACK_ON_DISPATCH_FAILURE" envDefault:"false"`
	IssueLimit                int           `env:"OTP_ISSUE_LIMIT" envDefault:"0"`
	IssueWindow               time.Duration `env:"OTP_ISSUE_WINDOW" envDefault:"1h"`
}

// RedisConfig enables the shared issuance limiter when Addr is set.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"notezipper:ratelimit:"`
}

// Enabled reports whether a Redis server is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// SMTPConfig holds outgoing mail settings. Without a host, mail is logged
// instead of sent.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@notezipper.local"`
	FromName string `env:"SMTP_FROM_NAME" envDefault:"noteZipper"`
	// TLSPolicy is one of "opportunistic", "mandatory" or "none".
	TLSPolicy string `env:"SMTP_TLS_POLICY" envDefault:"opportunistic"`
	// LogBody makes the log mailer print message bodies, codes included.
	// Local development only.
	LogBody bool `env:"SMTP_LOG_BODY" envDefault:"false"`
}

// Enabled reports whether an SMTP server is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// RateLimitConfig holds per-IP HTTP rate limits by endpoint group.
type RateLimitConfig struct {
	Enabled                bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	AuthRequestsPerWindow  int  `env:"RATE_LIMIT_AUTH_REQUESTS" envDefault:"10"`
	AuthWindowMinutes      int  `env:"RATE_LIMIT_AUTH_WINDOW_MINUTES" envDefault:"1"`
	OTPRequestsPerWindow   int  `env:"RATE_LIMIT_OTP_REQUESTS" envDefault:"5"`
	OTPWindowMinutes       int  `env:"RATE_LIMIT_OTP_WINDOW_MINUTES" envDefault:"15"`
	ResetRequestsPerWindow int  `env:"RATE_LIMIT_RESET_REQUESTS" envDefault:"5"`
	ResetWindowMinutes     int  `env:"RATE_LIMIT_RESET_WINDOW_MINUTES" envDefault:"60"`
	ProfileRequestsPerMin  int  `env:"RATE_LIMIT_PROFILE_REQUESTS" envDefault:"60"`
	ProfileWindowMinutes   int  `env:"RATE_LIMIT_PROFILE_WINDOW_MINUTES" envDefault:"1"`
}

// SecurityHeadersConfig holds the response security headers.
type SecurityHeadersConfig struct {
	Enabled            bool   `env:"SECURITY_HEADERS_ENABLED" envDefault:"true"`
	CSP                string `env:"SECURITY_HEADERS_CSP" envDefault:"default-src 'none'; frame-ancestors 'none'"`
	HSTSMaxAge         int    `env:"SECURITY_HEADERS_HSTS_MAX_AGE" envDefault:"0"`
	FrameOptions       string `env:"SECURITY_HEADERS_FRAME_OPTIONS" envDefault:"DENY"`
	ContentTypeOptions string `env:"SECURITY_HEADERS_CONTENT_TYPE_OPTIONS" envDefault:"nosniff"`
	ReferrerPolicy     string `env:"SECURITY_HEADERS_REFERRER_POLICY" envDefault:"no-referrer"`
	PermissionsPolicy  string `env:"SECURITY_HEADERS_PERMISSIONS_POLICY"`
}

// ValidationConfig holds request validation settings.
type ValidationConfig struct {
	MaxRequestBodySize    int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
	StrictEmailValidation bool  `env:"STRICT_EMAIL_VALIDATION" envDefault:"false"`
	BlockDisposableEmail  bool  `env:"BLOCK_DISPOSABLE_EMAIL" envDefault:"false"`
}

// PasswordPolicyConfig holds password requirements.
type PasswordPolicyConfig struct {
	MinLength        int  `env:"PASSWORD_MIN_LENGTH" envDefault:"6"`
	RequireUppercase bool `env:"PASSWORD_REQUIRE_UPPERCASE" envDefault:"false"`
	RequireLowercase bool `env:"PASSWORD_REQUIRE_LOWERCASE" envDefault:"false"`
	RequireNumber    bool `env:"PASSWORD_REQUIRE_NUMBER" envDefault:"false"`
	RequireSpecial   bool `env:"PASSWORD_REQUIRE_SPECIAL" envDefault:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage))
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be \"postgres\" or \"pgx\", got %q", c.Database.Driver))
	}
	if c.OTP.Min < 0 || c.OTP.Max < c.OTP.Min {
		errs = append(errs, fmt.Errorf("OTP_MIN (%d) and OTP_MAX (%d) do not form a range", c.OTP.Min, c.OTP.Max))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.OTP.IssueLimit < 0 {
		errs = append(errs, errors.New("OTP_ISSUE_LIMIT must not be negative"))
	}
	switch c.SMTP.TLSPolicy {
	case "opportunistic", "mandatory", "none":
	default:
		errs = append(errs, fmt.Errorf("SMTP_TLS_POLICY must be \"opportunistic\", \"mandatory\" or \"none\", got %q", c.SMTP.TLSPolicy))
	}
	if c.SessionTokenTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TOKEN_TTL must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}
