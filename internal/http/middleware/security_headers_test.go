package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/priyanshp28/noteZipper/internal/config"
)

func serveWithHeaders(cfg config.SecurityHeadersConfig) http.Header {
	handler := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
	return rec.Header()
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.SecurityHeadersConfig
		want   map[string]string
		absent []string
	}{
		{
			name: "api defaults",
			cfg: config.SecurityHeadersConfig{
				Enabled:            true,
				CSP:                "default-src 'none'; frame-ancestors 'none'",
				HSTSMaxAge:         31536000,
				FrameOptions:       "DENY",
				ContentTypeOptions: "nosniff",
				ReferrerPolicy:     "no-referrer",
			},
			want: map[string]string{
				"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
				"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
				"X-Frame-Options":           "DENY",
				"X-Content-Type-Options":    "nosniff",
				"Referrer-Policy":           "no-referrer",
				"Cache-Control":             "no-store",
				"Pragma":                    "no-cache",
			},
			absent: []string{"Permissions-Policy"},
		},
		{
			name: "empty values are skipped",
			cfg:  config.SecurityHeadersConfig{Enabled: true, ContentTypeOptions: "nosniff"},
			want: map[string]string{
				"X-Content-Type-Options": "nosniff",
				"Cache-Control":          "no-store",
			},
			absent: []string{"Content-Security-Policy", "Strict-Transport-Security", "X-Frame-Options"},
		},
		{
			name: "disabled still forbids caching",
			cfg:  config.SecurityHeadersConfig{Enabled: false, CSP: "default-src 'none'", FrameOptions: "DENY"},
			want: map[string]string{
				"Cache-Control": "no-store",
				"Pragma":        "no-cache",
			},
			absent: []string{"Content-Security-Policy", "X-Frame-Options"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serveWithHeaders(tt.cfg)
			for name, value := range tt.want {
				assert.Equal(t, value, got.Get(name), name)
			}
			for _, name := range tt.absent {
				assert.Empty(t, got.Get(name), name)
			}
		})
	}
}
