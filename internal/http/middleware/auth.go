package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/priyanshp28/noteZipper/internal/httputil"
	"github.com/priyanshp28/noteZipper/pkg/auth"
)

type contextKey string

const (
	// AccountIDKey is the context key for the authenticated account ID.
	AccountIDKey contextKey = "account_id"
	// ClaimsKey is the context key for the token claims.
	ClaimsKey contextKey = "claims"

	// LegacyTokenHeader carries a bare session token for older clients.
	LegacyTokenHeader = "auth-token"
)

// Auth creates middleware that validates session tokens.
// Checks the Authorization header first, then falls back to the auth-token header.
func Auth(sessions *auth.SessionIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				tokenString = strings.TrimSpace(r.Header.Get(LegacyTokenHeader))
			}

			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "Please authenticate using a valid token")
				return
			}

			claims, err := sessions.Validate(tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "Please authenticate using a valid token")
				return
			}

			accountID, err := claims.AccountID()
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, accountID)
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetAccountID extracts the account ID from the request context.
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	accountID, ok := ctx.Value(AccountIDKey).(uuid.UUID)
	return accountID, ok
}

// GetClaims extracts the token claims from the request context.
func GetClaims(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.SessionClaims)
	return claims, ok
}
