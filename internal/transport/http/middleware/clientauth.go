package middleware

import (
	"crypto/subtle"
	"net/http"
)

// ClientAuth requires HTTP basic credentials matching clientID and secret.
// A mismatch is 403. Empty clientID disables the check.
func ClientAuth(clientID, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if clientID == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, pw, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(id), []byte(clientID)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pw), []byte(secret)) != 1 {
				writeJSONError(w, http.StatusForbidden, "client credentials rejected")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
