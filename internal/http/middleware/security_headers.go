package middleware

import (
	"net/http"
	"strconv"

	"github.com/priyanshp28/noteZipper/internal/config"
)

// SecurityHeaders sets the configured browser hardening headers on every
// response. Responses of this service carry session tokens, reset grants
// and account data, so they are always marked uncacheable, even when the
// configurable headers are disabled.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	headers := http.Header{}
	headers.Set("Cache-Control", "no-store")
	headers.Set("Pragma", "no-cache")

	if cfg.Enabled {
		setIfPresent(headers, "Content-Security-Policy", cfg.CSP)
		if cfg.HSTSMaxAge > 0 {
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(cfg.HSTSMaxAge)+"; includeSubDomains")
		}
		setIfPresent(headers, "X-Frame-Options", cfg.FrameOptions)
		setIfPresent(headers, "X-Content-Type-Options", cfg.ContentTypeOptions)
		setIfPresent(headers, "Referrer-Policy", cfg.ReferrerPolicy)
		setIfPresent(headers, "Permissions-Policy", cfg.PermissionsPolicy)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dst := w.Header()
			for name, values := range headers {
				dst[name] = values
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setIfPresent(h http.Header, name, value string) {
	if value != "" {
		h.Set(name, value)
	}
}
