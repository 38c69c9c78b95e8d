package ledger

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-session-auth/internal/domain"
	jwtinfra "github.com/go-session-auth/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type memTokens struct {
	mu   sync.Mutex
	recs map[string]domain.AccessToken
}

func newMemTokens() *memTokens { return &memTokens{recs: map[string]domain.AccessToken{}} }

func (m *memTokens) Insert(_ context.Context, t *domain.AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[t.TokenID]; ok {
		return fmt.Errorf("insert access token: %w", domain.ErrKeyExists)
	}
	m.recs[t.TokenID] = *t
	return nil
}

func (m *memTokens) Get(_ context.Context, tokenID string) (*domain.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.recs[tokenID]
	if !ok {
		return nil, fmt.Errorf("access token not found: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (m *memTokens) ListActiveByAccount(_ context.Context, accountID string) ([]domain.AccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AccessToken
	for _, t := range m.recs {
		if t.AccountID == accountID && t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out, nil
}

func (m *memTokens) Update(_ context.Context, tokenID string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.recs[tokenID]
	if !ok {
		return fmt.Errorf("update access token: %w", domain.ErrNotFound)
	}
	for k, v := range updates {
		switch k {
		case fieldIsActive:
			t.IsActive = v.(bool)
		case fieldTwoFactorVerified:
			t.TwoFactorVerified = v.(bool)
		}
	}
	m.recs[tokenID] = t
	return nil
}

func (m *memTokens) active(accountID string) int {
	l, _ := m.ListActiveByAccount(context.Background(), accountID)
	return len(l)
}

type fakeAccounts struct {
	known map[string]bool
}

var policies = map[domain.AccountType]domain.AdmissionPolicy{
	domain.AccountRoot:     domain.PolicyExclusive,
	domain.AccountService:  domain.PolicyTakeover,
	domain.AccountPersonal: domain.PolicyCohabit,
}

func (f *fakeAccounts) Policy(t domain.AccountType) (domain.AdmissionPolicy, error) {
	p, ok := policies[t]
	if !ok {
		return domain.PolicyCohabit, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeAccounts) Exists(_ context.Context, _ domain.AccountType, accountID string) (bool, error) {
	return f.known[accountID], nil
}

func newTestService(t *testing.T) (*service, *memTokens, *jwtinfra.Provider) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	codec := jwtinfra.NewProviderFromKeys(key, &key.PublicKey, "test")
	tokens := newMemTokens()
	svc := NewService(ServiceDeps{
		TokenRepo:      tokens,
		Accounts:       &fakeAccounts{known: map[string]bool{"root1": true, "svc1": true, "p1": true}},
		Codec:          codec,
		AccessTokenTTL: time.Hour,
		StoreTimeout:   time.Second,
		MintAttempts:   3,
	}).(*service)
	return svc, tokens, codec
}

func TestIssue_RootIsExclusive(t *testing.T) {
	svc, tokens, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "root1", domain.AccountRoot, "cli")
	require.NoError(t, err)
	assert.True(t, first.Record.IsActive)

	_, err = svc.Issue(ctx, "root1", domain.AccountRoot, "cli")
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, 1, tokens.active("root1"))
}

func TestIssue_ServiceTakesOver(t *testing.T) {
	svc, tokens, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "svc1", domain.AccountService, "bot")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "svc1", domain.AccountService, "bot")
	require.NoError(t, err)

	assert.True(t, second.Record.IsActive)
	assert.Equal(t, 1, tokens.active("svc1"))
	old, err := tokens.Get(ctx, first.Record.TokenID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
}

func TestIssue_OthersCohabitInactive(t *testing.T) {
	svc, tokens, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "p1", domain.AccountPersonal, "web")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, "p1", domain.AccountPersonal, "phone")
	require.NoError(t, err)

	assert.True(t, first.Record.IsActive)
	assert.False(t, second.Record.IsActive)
	assert.Equal(t, 1, tokens.active("p1"))
}

func TestIssue_UnknownAccountNotAccepted(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Issue(context.Background(), "ghost", domain.AccountPersonal, "web")
	assert.True(t, errors.Is(err, domain.ErrNotAccepted))

	_, err = svc.Issue(context.Background(), "p1", "alien", "web")
	assert.True(t, errors.Is(err, domain.ErrNotAccepted))
}

func TestIssue_TokenCarriesRecordID(t *testing.T) {
	svc, _, codec := newTestService(t)
	issued, err := svc.Issue(context.Background(), "p1", domain.AccountPersonal, "web")
	require.NoError(t, err)

	claims, err := codec.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.Record.TokenID, claims.ID)
	assert.Equal(t, "p1", claims.Subject)
	assert.Equal(t, domain.PurposeAccess, claims.Purpose)
	assert.Equal(t, domain.AccountPersonal, claims.AccountType)
}

func TestIssue_RedrawsOnTokenIDCollision(t *testing.T) {
	svc, tokens, _ := newTestService(t)
	require.NoError(t, tokens.Insert(context.Background(), &domain.AccessToken{TokenID: "dup", AccountID: "other"}))
	draws := []string{"dup", "fresh"}
	svc.newID = func() (string, error) {
		id := draws[0]
		draws = draws[1:]
		return id, nil
	}

	issued, err := svc.Issue(context.Background(), "p1", domain.AccountPersonal, "web")
	require.NoError(t, err)
	assert.Equal(t, "fresh", issued.Record.TokenID)
}

func TestRevoke_WithPredicate(t *testing.T) {
	svc, tokens, _ := newTestService(t)
	ctx := context.Background()
	for _, rec := range []domain.AccessToken{
		{TokenID: "a", AccountID: "p1", UserAgent: "web", IsActive: true},
		{TokenID: "b", AccountID: "p1", UserAgent: "phone", IsActive: true},
		{TokenID: "c", AccountID: "p1", UserAgent: "web", IsActive: true},
	} {
		require.NoError(t, tokens.Insert(ctx, &rec))
	}

	n, err := svc.Revoke(ctx, "p1", func(t domain.AccessToken) bool { return t.UserAgent == "web" })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, tokens.active("p1"))

	n, err = svc.Revoke(ctx, "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, tokens.active("p1"))
}

func TestUpdate_OnlyMutableAttributes(t *testing.T) {
	svc, tokens, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, tokens.Insert(ctx, &domain.AccessToken{TokenID: "a", AccountID: "p1", IsActive: true}))

	require.NoError(t, svc.Update(ctx, "a", map[string]interface{}{"two_factor_verified": true}))
	rec, _ := tokens.Get(ctx, "a")
	assert.True(t, rec.TwoFactorVerified)

	for _, changes := range []map[string]interface{}{
		{},
		{"account_id": "p2"},
		{"user_agent": "x"},
		{"is_active": "yes"},
	} {
		err := svc.Update(ctx, "a", changes)
		assert.True(t, errors.Is(err, domain.ErrInvalidArgument), "%v", changes)
	}
}

func TestFindActive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.FindActive(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	issued, err := svc.Issue(ctx, "p1", domain.AccountPersonal, "web")
	require.NoError(t, err)
	rec, err = svc.FindActive(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, issued.Record.TokenID, rec.TokenID)
}

func TestAuthenticate_AndLogout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	issued, err := svc.Issue(ctx, "p1", domain.AccountPersonal, "web")
	require.NoError(t, err)

	rec, err := svc.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "p1", rec.AccountID)

	require.NoError(t, svc.Logout(ctx, rec.TokenID))
	_, err = svc.Authenticate(ctx, issued.Token)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestAuthenticate_RejectsSessionTokens(t *testing.T) {
	svc, _, codec := newTestService(t)
	_, tok, err := codec.Sign(jwtinfra.Claims{Purpose: domain.PurposeSignin, AccountType: domain.AccountRoot}, time.Minute, "")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), tok)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.True(t, errors.Is(err, domain.ErrMalformed))
}

func TestIssue_ResponseExpiryMatchesTokenExp(t *testing.T) {
	svc, _, codec := newTestService(t)
	base := time.Now().Add(1500 * time.Millisecond)
	svc.now = func() time.Time { return base }

	issued, err := svc.Issue(context.Background(), "p1", domain.AccountPersonal, "web")
	require.NoError(t, err)

	claims, err := codec.Decode(issued.Token)
	require.NoError(t, err)
	assert.True(t, issued.ExpiresAt.Equal(base.Add(time.Hour).Truncate(time.Second)))
	assert.True(t, claims.ExpiresAt.Time.Equal(issued.ExpiresAt))
}

type unavailableTokens struct {
	*memTokens
}

func (unavailableTokens) ListActiveByAccount(context.Context, string) ([]domain.AccessToken, error) {
	return nil, fmt.Errorf("query access tokens: %w", domain.ErrServiceUnavailable)
}

func TestStoreErrorsCarryOperation(t *testing.T) {
	svc, tokens, _ := newTestService(t)
	svc.tokens = unavailableTokens{tokens}
	ctx := context.Background()

	_, err := svc.Issue(ctx, "p1", domain.AccountPersonal, "web")
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	assert.ErrorContains(t, err, "issue access token")

	_, err = svc.Revoke(ctx, "p1", nil)
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	assert.ErrorContains(t, err, "revoke access tokens")

	_, err = svc.FindActive(ctx, "p1")
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
	assert.ErrorContains(t, err, "find active access token")
}

func TestIssue_UnknownTypeKeepsCause(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Issue(context.Background(), "p1", "alien", "web")
	assert.True(t, errors.Is(err, domain.ErrNotAccepted))
	assert.ErrorContains(t, err, domain.ErrNotFound.Error())
}
