package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-session-auth/internal/application/session"
	"github.com/go-session-auth/internal/domain"
	"github.com/go-session-auth/internal/pkg/validate"
	"github.com/go-session-auth/internal/transport/http/middleware"
)

// SessionHandler handles the multi-step signin and signup endpoints.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

var purposeParams = map[string]domain.Purpose{
	"signin": domain.PurposeSignin,
	"signup": domain.PurposeSignup,
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	purpose, ok := purposeParams[chi.URLParam(r, "purpose")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session purpose")
		return
	}
	created, err := h.svc.CreateSession(r.Context(), purpose, domain.AccountType(chi.URLParam(r, "accountType")))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *SessionHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Inspect(r.Context(), middleware.BearerToken(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionStateEnvelope{Session: st})
}

// AddField returns a handler storing one field for the given phase.
func (h *SessionHandler) AddField(phase domain.Purpose) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FieldRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		field := domain.Field(chi.URLParam(r, "field"))
		if err := h.svc.AddField(r.Context(), phase, middleware.BearerToken(r), field, *req.Value); err != nil {
			writeDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Submit(r.Context(), middleware.BearerToken(r), r.UserAgent())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Purpose == domain.PurposeSignup {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(r.Context(), middleware.BearerToken(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
