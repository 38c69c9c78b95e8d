package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-session-auth/internal/domain"
	"github.com/go-session-auth/internal/transport/http/apierr"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	AccountID string `json:"account_id,omitempty"`
}

// FieldRequest is the body of an add-field call. An explicit empty value is
// passed on so the service can reject it; a missing one is a bad request.
type FieldRequest struct {
	Value *string `json:"value" validate:"required"`
}

// AccessTokenEnvelope wraps the caller's current ledger record.
type AccessTokenEnvelope struct {
	AccessToken *domain.AccessToken `json:"access_token"`
}

// RevokeEnvelope reports how many records were deactivated.
type RevokeEnvelope struct {
	Revoked int `json:"revoked"`
}

// SessionStateEnvelope wraps an in-progress flow's state.
type SessionStateEnvelope struct {
	Session *domain.SessionState `json:"session"`
}

// HealthEnvelope reports backing store reachability.
type HealthEnvelope struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   time.Time         `json:"time"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps err onto its status. Internal failures are logged
// and reported without detail; a partial signup still reports the account id.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := apierr.Status(err)
	if status != http.StatusInternalServerError {
		writeError(w, status, err.Error())
		return
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	var partial *domain.PartialSignupError
	if errors.As(err, &partial) {
		writeJSON(w, status, MessageEnvelope{Error: "signup incomplete", AccountID: partial.AccountID})
		return
	}
	writeError(w, status, apierr.Message(err))
}
