package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/priyanshp28/noteZipper/internal/config"
	"github.com/priyanshp28/noteZipper/internal/httputil"
)

// Rate limit groups returned by CreateRateLimiters.
const (
	LimitAuth    = "auth"
	LimitOTP     = "otp"
	LimitReset   = "reset"
	LimitProfile = "profile"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates an IP-based rate limiter middleware with logging.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", ClientIP(r),
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Status(w, http.StatusTooManyRequests, httputil.StatusFailed, "Too many requests. Please try again later.", nil)
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return map[string]func(http.Handler) http.Handler{
			LimitAuth:    noOp,
			LimitOTP:     noOp,
			LimitReset:   noOp,
			LimitProfile: noOp,
		}
	}

	return map[string]func(http.Handler) http.Handler{
		LimitAuth: RateLimit(RateLimitConfig{
			Requests: cfg.AuthRequestsPerWindow,
			Window:   time.Duration(cfg.AuthWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		LimitOTP: RateLimit(RateLimitConfig{
			Requests: cfg.OTPRequestsPerWindow,
			Window:   time.Duration(cfg.OTPWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		LimitReset: RateLimit(RateLimitConfig{
			Requests: cfg.ResetRequestsPerWindow,
			Window:   time.Duration(cfg.ResetWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
		LimitProfile: RateLimit(RateLimitConfig{
			Requests: cfg.ProfileRequestsPerMin,
			Window:   time.Duration(cfg.ProfileWindowMinutes) * time.Minute,
			Logger:   logger,
		}),
	}
}
