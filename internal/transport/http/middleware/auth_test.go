package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-session-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct{ mock.Mock }

func (m *mockAuthenticator) Authenticate(ctx context.Context, token string) (*domain.AccessToken, error) {
	args := m.Called(ctx, token)
	if t, _ := args.Get(0).(*domain.AccessToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuth_MissingToken(t *testing.T) {
	a := &mockAuthenticator{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(a)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"missing access token"}`, rr.Body.String())
	a.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestAuth_ErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("token expired: %w", domain.ErrExpired), http.StatusUnauthorized},
		{fmt.Errorf("bad: %w", domain.ErrMalformed), http.StatusBadRequest},
		{fmt.Errorf("inactive: %w", domain.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("get: %w", domain.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		a := &mockAuthenticator{}
		a.On("Authenticate", mock.Anything, "tok").Return(nil, c.err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rr := httptest.NewRecorder()
		Auth(a)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
		assert.Equal(t, c.want, rr.Code, "%v", c.err)
	}
}

func TestAuth_InjectsRecord(t *testing.T) {
	a := &mockAuthenticator{}
	a.On("Authenticate", mock.Anything, "tok").Return(&domain.AccessToken{TokenID: "t1", AccountID: "a1"}, nil)

	var got *domain.AccessToken
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AccessTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/?token=tok", nil)
	rr := httptest.NewRecorder()
	Auth(a)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.AccountID)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?token=query", nil)
	assert.Equal(t, "query", BearerToken(req))

	req.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "header", BearerToken(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", BearerToken(req))
}
