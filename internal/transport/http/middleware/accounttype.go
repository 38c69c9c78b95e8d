package middleware

import (
	"net/http"

	"github.com/go-session-auth/internal/domain"
)

// RequireAccountType allows access only to access tokens whose account type
// is one of allowed.
func RequireAccountType(allowed ...domain.AccountType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec, ok := AccessTokenFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, t := range allowed {
				if rec.AccountType == t {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, "forbidden")
		})
	}
}
