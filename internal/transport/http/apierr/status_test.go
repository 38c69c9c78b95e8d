package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-session-auth/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.ErrMalformed, http.StatusBadRequest},
		{domain.ErrInvalidArgument, http.StatusBadRequest},
		{domain.ErrExpired, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrNotAccepted, http.StatusNotAcceptable},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrResourceExhausted, http.StatusTooManyRequests},
		{domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{domain.ErrSigning, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("submit: %w", domain.ErrExpired), http.StatusUnauthorized},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err), "%v", c.err)
	}
}

func TestStatus_PartialSignupWinsOverCause(t *testing.T) {
	err := &domain.PartialSignupError{AccountID: "a1", Err: domain.ErrServiceUnavailable}
	assert.Equal(t, http.StatusInternalServerError, Status(err))
	assert.Equal(t, "internal error", Message(err))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "conflict", Message(domain.ErrConflict))
	assert.Equal(t, "internal error", Message(errors.New("dynamo exploded")))
}
