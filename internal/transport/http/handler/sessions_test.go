package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-session-auth/internal/application/session"
	"github.com/go-session-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockSessionSvc struct{ mock.Mock }

func (m *mockSessionSvc) CreateSession(ctx context.Context, purpose domain.Purpose, accountType domain.AccountType) (*session.Created, error) {
	args := m.Called(ctx, purpose, accountType)
	if c, _ := args.Get(0).(*session.Created); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) AddField(ctx context.Context, phase domain.Purpose, token string, field domain.Field, value string) error {
	return m.Called(ctx, phase, token, field, value).Error(0)
}

func (m *mockSessionSvc) Submit(ctx context.Context, token, userAgent string) (*session.SubmitResult, error) {
	args := m.Called(ctx, token, userAgent)
	if r, _ := args.Get(0).(*session.SubmitResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) Inspect(ctx context.Context, token string) (*domain.SessionState, error) {
	args := m.Called(ctx, token)
	if s, _ := args.Get(0).(*domain.SessionState); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionSvc) Cancel(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

// --- helpers ---

func sessionRouter(svc session.Service) http.Handler {
	h := NewSessionHandler(svc)
	r := chi.NewRouter()
	r.Post("/sessions/{purpose}/{accountType}", h.Create)
	r.Get("/sessions", h.Inspect)
	r.Put("/signin/fields/{field}", h.AddField(domain.PurposeSignin))
	r.Put("/signup/fields/{field}", h.AddField(domain.PurposeSignup))
	r.Post("/sessions/submit", h.Submit)
	r.Delete("/sessions", h.Cancel)
	return r
}

func do(t *testing.T, h http.Handler, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func fieldBody(v string) FieldRequest {
	return FieldRequest{Value: &v}
}

// --- tests ---

func TestCreate_MapsPurposeParam(t *testing.T) {
	svc := &mockSessionSvc{}
	exp := time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC)
	svc.On("CreateSession", mock.Anything, domain.PurposeSignin, domain.AccountRoot).
		Return(&session.Created{Token: "tok", Purpose: domain.PurposeSignin, AccountType: domain.AccountRoot, ExpiresAt: exp}, nil)

	rr := do(t, sessionRouter(svc), http.MethodPost, "/sessions/signin/root", "", nil)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "tok", got["token"])
	assert.Equal(t, "signin-session", got["purpose"])
	assert.NotContains(t, got, "TokenID")
}

func TestCreate_UnknownPurpose(t *testing.T) {
	svc := &mockSessionSvc{}
	rr := do(t, sessionRouter(svc), http.MethodPost, "/sessions/access/root", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	svc.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_UnknownAccountType(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("CreateSession", mock.Anything, domain.PurposeSignup, domain.AccountType("alien")).
		Return(nil, fmt.Errorf("account type %q: %w", "alien", domain.ErrNotFound))

	rr := do(t, sessionRouter(svc), http.MethodPost, "/sessions/signup/alien", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddField_PassesPhaseFromRoute(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("AddField", mock.Anything, domain.PurposeSignup, "tok", domain.FieldComment, "ok").Return(nil)
	svc.On("AddField", mock.Anything, domain.PurposeSignin, "tok", domain.FieldComment, "ok").
		Return(fmt.Errorf("add field: %w", domain.ErrForbidden))
	h := sessionRouter(svc)

	rr := do(t, h, http.MethodPut, "/signup/fields/comment", "tok", fieldBody("ok"))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodPut, "/signin/fields/comment", "tok", fieldBody("ok"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAddField_BadBody(t *testing.T) {
	svc := &mockSessionSvc{}
	req := httptest.NewRequest(http.MethodPut, "/signin/fields/username", bytes.NewBufferString("{"))
	rr := httptest.NewRecorder()
	sessionRouter(svc).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddField_MissingValue(t *testing.T) {
	svc := &mockSessionSvc{}
	rr := do(t, sessionRouter(svc), http.MethodPut, "/signin/fields/username", "tok", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "field 'Value' failed 'required'")
	svc.AssertNotCalled(t, "AddField", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddField_EmptyValueReachesService(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("AddField", mock.Anything, domain.PurposeSignin, "tok", domain.FieldPassword, "").
		Return(fmt.Errorf("add field: password is empty: %w", domain.ErrNotAccepted))

	rr := do(t, sessionRouter(svc), http.MethodPut, "/signin/fields/password", "tok", fieldBody(""))
	assert.Equal(t, http.StatusNotAcceptable, rr.Code)
}

func TestAddField_QueryToken(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("AddField", mock.Anything, domain.PurposeSignin, "qtok", domain.FieldUsername, "alice").Return(nil)

	rr := do(t, sessionRouter(svc), http.MethodPut, "/signin/fields/username?token=qtok", "", fieldBody("alice"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestSubmit_StatusPerOutcome(t *testing.T) {
	cases := []struct {
		name string
		res  *session.SubmitResult
		err  error
		want int
	}{
		{"signup", &session.SubmitResult{Purpose: domain.PurposeSignup, AccountID: "a1"}, nil, http.StatusCreated},
		{"signin", &session.SubmitResult{Purpose: domain.PurposeSignin, AccountID: "a1", AccessToken: "at"}, nil, http.StatusOK},
		{"expired", nil, fmt.Errorf("submit: %w", domain.ErrExpired), http.StatusUnauthorized},
		{"missing field", nil, fmt.Errorf("submit: %w", domain.ErrNotAccepted), http.StatusNotAcceptable},
		{"root conflict", nil, fmt.Errorf("submit: %w", domain.ErrConflict), http.StatusConflict},
		{"exhausted", nil, fmt.Errorf("create: %w", domain.ErrResourceExhausted), http.StatusTooManyRequests},
		{"timeout", nil, fmt.Errorf("get: %w", domain.ErrServiceUnavailable), http.StatusServiceUnavailable},
		{"unknown", nil, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc := &mockSessionSvc{}
			svc.On("Submit", mock.Anything, "tok", "test-agent").Return(c.res, c.err)
			rr := do(t, sessionRouter(svc), http.MethodPost, "/sessions/submit", "tok", nil)
			assert.Equal(t, c.want, rr.Code)
		})
	}
}

func TestSubmit_PartialSignupReportsAccountID(t *testing.T) {
	svc := &mockSessionSvc{}
	partial := &domain.PartialSignupError{AccountType: domain.AccountService, AccountID: "01ACC", Err: errors.New("throttled")}
	svc.On("Submit", mock.Anything, "tok", "test-agent").Return(nil, fmt.Errorf("submit: %w", partial))

	rr := do(t, sessionRouter(svc), http.MethodPost, "/sessions/submit", "tok", nil)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"signup incomplete","account_id":"01ACC"}`, rr.Body.String())
}

func TestSubmit_InternalErrorHidesDetail(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("Submit", mock.Anything, "tok", "test-agent").Return(nil, errors.New("dynamo: secret table name"))

	rr := do(t, sessionRouter(svc), http.MethodPost, "/sessions/submit", "tok", nil)
	assert.JSONEq(t, `{"error":"internal error"}`, rr.Body.String())
}

func TestInspectAndCancel(t *testing.T) {
	svc := &mockSessionSvc{}
	svc.On("Inspect", mock.Anything, "tok").Return(&domain.SessionState{
		Purpose: domain.PurposeSignup, AccountType: domain.AccountService, Missing: []domain.Field{domain.FieldComment},
	}, nil)
	svc.On("Cancel", mock.Anything, "tok").Return(nil)
	h := sessionRouter(svc)

	rr := do(t, h, http.MethodGet, "/sessions", "tok", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var env SessionStateEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, []domain.Field{domain.FieldComment}, env.Session.Missing)

	rr = do(t, h, http.MethodDelete, "/sessions", "tok", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
