package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priyanshp28/noteZipper/internal/config"
	"github.com/priyanshp28/noteZipper/internal/testutil"
)

func newTestRouter(t *testing.T, rl config.RateLimitConfig) (http.Handler, *testutil.Services) {
	t.Helper()
	svc := testutil.NewServices(t)
	router := NewRouter(RouterConfig{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Authenticator:   svc.Authenticator,
		AccountService:  svc.Accounts,
		SessionIssuer:   svc.Sessions,
		RateLimitConfig: rl,
		SecurityHeaders: config.SecurityHeadersConfig{Enabled: true, ContentTypeOptions: "nosniff"},
		Validation:      config.ValidationConfig{MaxRequestBodySize: 1 << 10},
	})
	return router, svc
}

func send(t *testing.T, router http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, config.RateLimitConfig{})

	rec, body := send(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestRouter_AnnEndToEnd(t *testing.T) {
	router, svc := newTestRouter(t, config.RateLimitConfig{})

	rec, body := send(t, router, http.MethodPost, "/api/auth/createuser", "",
		`{"name":"Ann","email":"ann@x.io","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "PENDING", body["status"])
	userID := body["data"].(map[string]any)["userId"].(string)

	rec, _ = send(t, router, http.MethodPost, "/api/auth/getuser", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = send(t, router, http.MethodPost, "/api/auth/verifyOTP", "",
		`{"userId":"`+userID+`","otp":"`+svc.Mailer.LastCode(t)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "VERIFIED", body["status"])

	rec, body = send(t, router, http.MethodPost, "/api/auth/login", "",
		`{"email":"ann@x.io","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	token := body["authToken"].(string)

	rec, body = send(t, router, http.MethodPost, "/api/auth/getuser", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, body["_id"])

	rec, body = send(t, router, http.MethodPut, "/api/auth/editUser/"+userID, token, `{"name":"Annie"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Annie", body["user"].(map[string]any)["name"])

	rec, _ = send(t, router, http.MethodDelete, "/api/auth/deleteUser/"+userID, token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_BodyTooLarge(t *testing.T) {
	router, _ := newTestRouter(t, config.RateLimitConfig{})

	big := `{"name":"Ann","email":"ann@x.io","password":"` + strings.Repeat("a", 2048) + `"}`
	rec, body := send(t, router, http.MethodPost, "/api/auth/createuser", "", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FAILED", body["status"])
}

func TestRouter_OTPRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, config.RateLimitConfig{
		Enabled:                true,
		AuthRequestsPerWindow:  100,
		AuthWindowMinutes:      1,
		OTPRequestsPerWindow:   2,
		OTPWindowMinutes:       1,
		ResetRequestsPerWindow: 100,
		ResetWindowMinutes:     1,
		ProfileRequestsPerMin:  100,
		ProfileWindowMinutes:   1,
	})

	for i := 0; i < 2; i++ {
		rec, _ := send(t, router, http.MethodPost, "/api/auth/verifyOTP", "", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec, body := send(t, router, http.MethodPost, "/api/auth/verifyOTP", "", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "FAILED", body["status"])

	rec, _ = send(t, router, http.MethodPost, "/api/auth/login", "", `{"email":"ann@x.io","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
