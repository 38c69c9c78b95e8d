package middleware

import (
	"context"
	"net/http"

	"github.com/go-session-auth/internal/domain"
)

type contextKey string

const accessTokenKey contextKey = "access_token"

// Authenticator resolves an access token to its active ledger record.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.AccessToken, error)
}

// Auth returns middleware that requires an active access token and injects
// its ledger record into the request context.
func Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing access token")
				return
			}
			rec, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), accessTokenKey, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessTokenFromContext returns the ledger record injected by Auth.
func AccessTokenFromContext(ctx context.Context) (*domain.AccessToken, bool) {
	t, ok := ctx.Value(accessTokenKey).(*domain.AccessToken)
	return t, ok
}
