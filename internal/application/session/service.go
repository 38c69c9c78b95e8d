package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-session-auth/internal/application/ledger"
	"github.com/go-session-auth/internal/domain"
	jwtinfra "github.com/go-session-auth/internal/infrastructure/jwt"
)

// Created is a freshly opened session.
type Created struct {
	Token       string             `json:"token"`
	TokenID     string             `json:"-"`
	Purpose     domain.Purpose     `json:"purpose"`
	AccountType domain.AccountType `json:"account_type"`
	Fields      []domain.Field     `json:"fields"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

// SubmitResult is the outcome of a completed flow. Signin fills the access
// token fields, signup fills AccountID.
type SubmitResult struct {
	Purpose              domain.Purpose     `json:"purpose"`
	AccountType          domain.AccountType `json:"account_type"`
	AccountID            string             `json:"account_id"`
	AccessToken          string             `json:"access_token,omitempty"`
	AccessTokenExpiresAt *time.Time         `json:"access_token_expires_at,omitempty"`
	AccessTokenActive    *bool              `json:"access_token_active,omitempty"`
}

// Service drives the multi-step signin and signup protocol.
type Service interface {
	CreateSession(ctx context.Context, purpose domain.Purpose, accountType domain.AccountType) (*Created, error)
	AddField(ctx context.Context, phase domain.Purpose, token string, field domain.Field, value string) error
	Submit(ctx context.Context, token, userAgent string) (*SubmitResult, error)
	Inspect(ctx context.Context, token string) (*domain.SessionState, error)
	Cancel(ctx context.Context, token string) error
}

type sessionCache interface {
	CreateSessionWithRetry(ctx context.Context, obj *domain.SessionObject, schema []domain.Field, expiresAt time.Time, maxAttempts int) (string, error)
	Get(ctx context.Context, id string) (*domain.SessionObject, error)
	SetField(ctx context.Context, id string, field domain.Field, value string) error
	Delete(ctx context.Context, id string) error
}

type tokenCodec interface {
	SignUntil(c jwtinfra.Claims, expiresAt time.Time, explicitID string) (string, string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type fieldValidator interface {
	Validate(accountType domain.AccountType, field domain.Field, value string) error
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type accountRegistry interface {
	Schema(purpose domain.Purpose, t domain.AccountType) ([]domain.Field, error)
	Persist(ctx context.Context, t domain.AccountType, obj *domain.SessionObject) (string, error)
	Resolve(ctx context.Context, t domain.AccountType, username string) (*domain.Account, error)
	Digest(ctx context.Context, accountID string) (string, error)
}

type tokenIssuer interface {
	Issue(ctx context.Context, accountID string, accountType domain.AccountType, userAgent string) (*ledger.Issued, error)
}

type alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

type service struct {
	cache     sessionCache
	codec     tokenCodec
	validator fieldValidator
	hasher    passwordHasher
	accounts  accountRegistry
	ledger    tokenIssuer
	alerter   alerter
	signinTTL time.Duration
	signupTTL time.Duration
	attempts  int
	timeout   time.Duration
	now       func() time.Time
}

type ServiceDeps struct {
	Cache          sessionCache
	Codec          tokenCodec
	Validator      fieldValidator
	Hasher         passwordHasher
	Accounts       accountRegistry
	Ledger         tokenIssuer
	Alerter        alerter // optional, told about partial signups
	SigninTTL      time.Duration
	SignupTTL      time.Duration
	CreateAttempts int
	StoreTimeout   time.Duration
	Clock          func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		cache:     deps.Cache,
		codec:     deps.Codec,
		validator: deps.Validator,
		hasher:    deps.Hasher,
		accounts:  deps.Accounts,
		ledger:    deps.Ledger,
		alerter:   deps.Alerter,
		signinTTL: deps.SigninTTL,
		signupTTL: deps.SignupTTL,
		attempts:  deps.CreateAttempts,
		timeout:   deps.StoreTimeout,
		now:       now,
	}
}

func (s *service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *service) ttl(p domain.Purpose) time.Duration {
	if p == domain.PurposeSignin {
		return s.signinTTL
	}
	return s.signupTTL
}

func (s *service) CreateSession(ctx context.Context, purpose domain.Purpose, accountType domain.AccountType) (*Created, error) {
	if !purpose.IsSession() {
		return nil, fmt.Errorf("session purpose %q: %w", purpose, domain.ErrNotFound)
	}
	schema, err := s.accounts.Schema(purpose, accountType)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	// Token exp and cache expiry share one instant, truncated to the
	// whole-second precision of a JWT NumericDate.
	expiresAt := s.now().Add(s.ttl(purpose)).Truncate(time.Second)

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	id, err := s.cache.CreateSessionWithRetry(ctx, &domain.SessionObject{}, schema, expiresAt, s.attempts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	_, token, err := s.codec.SignUntil(jwtinfra.Claims{Purpose: purpose, AccountType: accountType}, expiresAt, id)
	if err != nil {
		if derr := s.cache.Delete(ctx, id); derr != nil {
			slog.Warn("drop unsigned session", "session_id", id, "error", derr)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Created{
		Token:       token,
		TokenID:     id,
		Purpose:     purpose,
		AccountType: accountType,
		Fields:      schema,
		ExpiresAt:   expiresAt,
	}, nil
}

// sessionClaims verifies a session token. Verification failures and
// non-session purposes map to ErrForbidden, except that an expired token
// stays ErrExpired when keepExpired is set.
func (s *service) sessionClaims(token string, keepExpired bool) (*jwtinfra.Claims, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		if keepExpired && errors.Is(err, domain.ErrExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %w", err, domain.ErrForbidden)
	}
	if !claims.Purpose.IsSession() {
		return nil, fmt.Errorf("token purpose %q: %w", claims.Purpose, domain.ErrForbidden)
	}
	return claims, nil
}

func (s *service) AddField(ctx context.Context, phase domain.Purpose, token string, field domain.Field, value string) error {
	claims, err := s.sessionClaims(token, false)
	if err != nil {
		return fmt.Errorf("add field: %w", err)
	}
	if claims.Purpose != phase {
		return fmt.Errorf("add field: %s token on %s endpoint: %w", claims.Purpose, phase, domain.ErrForbidden)
	}
	schema, err := s.accounts.Schema(claims.Purpose, claims.AccountType)
	if err != nil {
		return fmt.Errorf("add field: %v: %w", err, domain.ErrForbidden)
	}
	if !domain.Contains(schema, field) {
		return fmt.Errorf("add field: %q not allowed for %s %s: %w", field, claims.AccountType, claims.Purpose, domain.ErrForbidden)
	}

	// Signin passwords are checked against the stored digest, not against
	// the signup strength rules.
	if phase == domain.PurposeSignin && field == domain.FieldPassword {
		if value == "" {
			return fmt.Errorf("add field: password is empty: %w", domain.ErrNotAccepted)
		}
	} else if err := s.validator.Validate(claims.AccountType, field, value); err != nil {
		return fmt.Errorf("add field: %v: %w", err, domain.ErrNotAccepted)
	}

	// Signup passwords are stored as digests for the whole signup window.
	if phase == domain.PurposeSignup && field == domain.FieldPassword {
		value, err = s.hasher.Hash(value)
		if err != nil {
			return fmt.Errorf("add field: hash password: %w", err)
		}
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.cache.SetField(ctx, claims.ID, field, value); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("add field: session gone: %w", domain.ErrExpired)
		}
		return fmt.Errorf("add field: %w", err)
	}
	return nil
}

func (s *service) Submit(ctx context.Context, token, userAgent string) (*SubmitResult, error) {
	claims, err := s.sessionClaims(token, true)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	schema, err := s.accounts.Schema(claims.Purpose, claims.AccountType)
	if err != nil {
		return nil, fmt.Errorf("submit: %v: %w", err, domain.ErrForbidden)
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	obj, err := s.load(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if f, missing := obj.FirstMissing(schema); missing {
		return nil, fmt.Errorf("submit: field %q is required: %w", f, domain.ErrNotAccepted)
	}

	var res *SubmitResult
	switch claims.Purpose {
	case domain.PurposeSignin:
		res, err = s.signin(ctx, claims.AccountType, obj, userAgent)
	default:
		res, err = s.signup(ctx, claims.AccountType, obj)
	}
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	res.Purpose = claims.Purpose
	res.AccountType = claims.AccountType

	if err := s.cache.Delete(ctx, claims.ID); err != nil {
		slog.Warn("delete submitted session", "session_id", claims.ID, "error", err)
	}
	return res, nil
}

func (s *service) load(ctx context.Context, id string) (*domain.SessionObject, error) {
	obj, err := s.cache.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session gone: %w", domain.ErrExpired)
		}
		return nil, err
	}
	return obj, nil
}

func (s *service) signin(ctx context.Context, t domain.AccountType, obj *domain.SessionObject, userAgent string) (*SubmitResult, error) {
	acct, err := s.accounts.Resolve(ctx, t, obj.Username)
	if err != nil {
		return nil, err
	}
	digest, err := s.accounts.Digest(ctx, acct.AccountID)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(obj.Password, digest) {
		return nil, fmt.Errorf("wrong password: %w", domain.ErrNotAccepted)
	}
	issued, err := s.ledger.Issue(ctx, acct.AccountID, t, userAgent)
	if err != nil {
		return nil, err
	}
	active := issued.Record.IsActive
	return &SubmitResult{
		AccountID:            acct.AccountID,
		AccessToken:          issued.Token,
		AccessTokenExpiresAt: &issued.ExpiresAt,
		AccessTokenActive:    &active,
	}, nil
}

func (s *service) signup(ctx context.Context, t domain.AccountType, obj *domain.SessionObject) (*SubmitResult, error) {
	accountID, err := s.accounts.Persist(ctx, t, obj)
	if err != nil {
		var partial *domain.PartialSignupError
		if errors.As(err, &partial) {
			s.reportPartial(ctx, partial)
		}
		return nil, err
	}
	return &SubmitResult{AccountID: accountID}, nil
}

func (s *service) reportPartial(ctx context.Context, e *domain.PartialSignupError) {
	slog.Error("partial signup", "account_type", e.AccountType, "account_id", e.AccountID, "error", e.Err)
	if s.alerter == nil {
		return
	}
	msg := fmt.Sprintf("account %s of type %s was created without a credential: %v", e.AccountID, e.AccountType, e.Err)
	if err := s.alerter.Alert(context.WithoutCancel(ctx), "partial signup", msg); err != nil {
		slog.Warn("partial signup alert", "account_id", e.AccountID, "error", err)
	}
}

// Inspect reports the state of an in-progress flow. The reported expiry is
// the token's, which is also the cache entry's.
func (s *service) Inspect(ctx context.Context, token string) (*domain.SessionState, error) {
	claims, err := s.sessionClaims(token, true)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	schema, err := s.accounts.Schema(claims.Purpose, claims.AccountType)
	if err != nil {
		return nil, fmt.Errorf("inspect: %v: %w", err, domain.ErrForbidden)
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	obj, err := s.load(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}
	missing := []domain.Field{}
	for _, f := range schema {
		if v, _ := obj.Get(f); v == "" {
			missing = append(missing, f)
		}
	}
	return &domain.SessionState{
		Purpose:     claims.Purpose,
		AccountType: claims.AccountType,
		Missing:     missing,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// Cancel discards the Session Object behind token.
func (s *service) Cancel(ctx context.Context, token string) error {
	claims, err := s.sessionClaims(token, false)
	if err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.cache.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	return nil
}
