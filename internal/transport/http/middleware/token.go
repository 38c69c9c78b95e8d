package middleware

import (
	"net/http"
	"strings"
)

// BearerToken returns the token carried in the Authorization header, falling
// back to the token query parameter.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
