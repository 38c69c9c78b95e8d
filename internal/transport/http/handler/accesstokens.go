package handler

import (
	"net/http"

	"github.com/go-session-auth/internal/application/ledger"
	"github.com/go-session-auth/internal/domain"
	"github.com/go-session-auth/internal/transport/http/middleware"
)

// AccessTokenHandler handles endpoints that act on the caller's access token.
type AccessTokenHandler struct {
	svc ledger.Service
}

func NewAccessTokenHandler(svc ledger.Service) *AccessTokenHandler {
	return &AccessTokenHandler{svc: svc}
}

func (h *AccessTokenHandler) Current(w http.ResponseWriter, r *http.Request) {
	rec, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	active, err := h.svc.FindActive(r.Context(), rec.AccountID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if active == nil {
		writeError(w, http.StatusNotFound, "no active access token")
		return
	}
	writeJSON(w, http.StatusOK, AccessTokenEnvelope{AccessToken: active})
}

func (h *AccessTokenHandler) Logout(w http.ResponseWriter, r *http.Request) {
	rec, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Logout(r.Context(), rec.TokenID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

// RevokeOthers deactivates every active record of the caller's account except
// the one making the request.
func (h *AccessTokenHandler) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	rec, ok := middleware.AccessTokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.Revoke(r.Context(), rec.AccountID, func(t domain.AccessToken) bool {
		return t.TokenID != rec.TokenID
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RevokeEnvelope{Revoked: n})
}
