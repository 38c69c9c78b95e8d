package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-session-auth/internal/domain"
	jwtinfra "github.com/go-session-auth/internal/infrastructure/jwt"
	"github.com/go-session-auth/internal/pkg/unique"
	"github.com/google/uuid"
)

// Mutable ledger attributes.
const (
	fieldIsActive          = "is_active"
	fieldTwoFactorVerified = "two_factor_verified"
)

// Issued is a freshly minted access token and its ledger record.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	Record    *domain.AccessToken
}

// Service records and constrains long-lived access tokens.
type Service interface {
	Issue(ctx context.Context, accountID string, accountType domain.AccountType, userAgent string) (*Issued, error)
	Revoke(ctx context.Context, accountID string, match func(domain.AccessToken) bool) (int, error)
	Update(ctx context.Context, tokenID string, changes map[string]interface{}) error
	FindActive(ctx context.Context, accountID string) (*domain.AccessToken, error)
	Authenticate(ctx context.Context, token string) (*domain.AccessToken, error)
	Logout(ctx context.Context, tokenID string) error
}

type tokenStore interface {
	Insert(ctx context.Context, t *domain.AccessToken) error
	Get(ctx context.Context, tokenID string) (*domain.AccessToken, error)
	ListActiveByAccount(ctx context.Context, accountID string) ([]domain.AccessToken, error)
	Update(ctx context.Context, tokenID string, updates map[string]interface{}) error
}

type accountDirectory interface {
	Policy(t domain.AccountType) (domain.AdmissionPolicy, error)
	Exists(ctx context.Context, t domain.AccountType, accountID string) (bool, error)
}

type tokenCodec interface {
	SignUntil(c jwtinfra.Claims, expiresAt time.Time, explicitID string) (string, string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type service struct {
	tokens   tokenStore
	accounts accountDirectory
	codec    tokenCodec
	ttl      time.Duration
	timeout  time.Duration
	attempts int
	newID    func() (string, error)
	now      func() time.Time
}

type ServiceDeps struct {
	TokenRepo      tokenStore
	Accounts       accountDirectory
	Codec          tokenCodec
	AccessTokenTTL time.Duration
	StoreTimeout   time.Duration
	MintAttempts   int
}

func NewService(deps ServiceDeps) Service {
	return &service{
		tokens:   deps.TokenRepo,
		accounts: deps.Accounts,
		codec:    deps.Codec,
		ttl:      deps.AccessTokenTTL,
		timeout:  deps.StoreTimeout,
		attempts: deps.MintAttempts,
		newID: func() (string, error) {
			u, err := uuid.NewRandom()
			return u.String(), err
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *service) Issue(ctx context.Context, accountID string, accountType domain.AccountType, userAgent string) (*Issued, error) {
	policy, err := s.accounts.Policy(accountType)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %v: %w", err, domain.ErrNotAccepted)
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	ok, err := s.accounts.Exists(ctx, accountType, accountID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("issue access token: account %s: %w", accountID, domain.ErrNotAccepted)
	}

	active, err := s.tokens.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	isActive := true
	switch policy {
	case domain.PolicyExclusive:
		if len(active) > 0 {
			return nil, fmt.Errorf("issue access token: multiple concurrent sessions not permitted: %w", domain.ErrConflict)
		}
	case domain.PolicyTakeover:
		for _, t := range active {
			if err := s.tokens.Update(ctx, t.TokenID, map[string]interface{}{fieldIsActive: false}); err != nil {
				return nil, fmt.Errorf("issue access token: take over %s: %w", t.TokenID, err)
			}
		}
	default:
		isActive = len(active) == 0
	}

	// One instant for the record, the token's exp and the response.
	now := s.now()
	expiresAt := now.Add(s.ttl).Truncate(time.Second)
	claims := jwtinfra.Claims{Purpose: domain.PurposeAccess, AccountType: accountType}
	claims.Subject = accountID

	var issued Issued
	_, err = unique.Mint(ctx, s.attempts, s.newID, func(ctx context.Context, tokenID string) error {
		_, token, err := s.codec.SignUntil(claims, expiresAt, tokenID)
		if err != nil {
			return err
		}
		rec := &domain.AccessToken{
			TokenID:     tokenID,
			AccountID:   accountID,
			AccountType: accountType,
			UserAgent:   userAgent,
			IsActive:    isActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.tokens.Insert(ctx, rec); err != nil {
			return err
		}
		issued = Issued{Token: token, ExpiresAt: expiresAt, Record: rec}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	if !isActive {
		slog.Info("access token issued inactive", "account_id", accountID, "policy", policy.String())
	}
	return &issued, nil
}

// Revoke deactivates every active record of accountID for which match
// returns true. A nil match revokes all of them.
func (s *service) Revoke(ctx context.Context, accountID string, match func(domain.AccessToken) bool) (int, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	active, err := s.tokens.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("revoke access tokens: %w", err)
	}
	n := 0
	for _, t := range active {
		if match != nil && !match(t) {
			continue
		}
		if err := s.tokens.Update(ctx, t.TokenID, map[string]interface{}{fieldIsActive: false}); err != nil {
			return n, fmt.Errorf("revoke access token %s: %w", t.TokenID, err)
		}
		n++
	}
	return n, nil
}

func (s *service) Update(ctx context.Context, tokenID string, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return fmt.Errorf("no changes: %w", domain.ErrInvalidArgument)
	}
	updates := make(map[string]interface{}, len(changes))
	for k, v := range changes {
		if k != fieldIsActive && k != fieldTwoFactorVerified {
			return fmt.Errorf("attribute %q is immutable: %w", k, domain.ErrInvalidArgument)
		}
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("attribute %q must be a boolean: %w", k, domain.ErrInvalidArgument)
		}
		updates[k] = b
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.tokens.Update(ctx, tokenID, updates); err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	return nil
}

// FindActive returns the first active record of accountID, or nil when it has none.
func (s *service) FindActive(ctx context.Context, accountID string) (*domain.AccessToken, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	active, err := s.tokens.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("find active access token: %w", err)
	}
	if len(active) == 0 {
		return nil, nil
	}
	return &active[0], nil
}

// Authenticate verifies an access token and requires its ledger record to be
// active and owned by the token's subject.
func (s *service) Authenticate(ctx context.Context, token string) (*domain.AccessToken, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if claims.Purpose != domain.PurposeAccess {
		return nil, fmt.Errorf("token purpose %q: %w", claims.Purpose, domain.ErrForbidden)
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rec, err := s.tokens.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown access token: %w", domain.ErrForbidden)
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !rec.IsActive || rec.AccountID != claims.Subject {
		return nil, fmt.Errorf("access token %s inactive: %w", rec.TokenID, domain.ErrForbidden)
	}
	return rec, nil
}

func (s *service) Logout(ctx context.Context, tokenID string) error {
	return s.Update(ctx, tokenID, map[string]interface{}{fieldIsActive: false})
}
