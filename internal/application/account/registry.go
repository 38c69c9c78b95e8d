// Package account dispatches per-account-type behaviour: the signup schema,
// the access-token admission policy, persistence and username resolution.
// Adding an account type is one entry in the profile table.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-session-auth/internal/domain"
	"github.com/go-session-auth/internal/pkg/id"
)

var personalFields = []domain.Field{
	domain.FieldUsername,
	domain.FieldPassword,
	domain.FieldEmail,
	domain.FieldFirstName,
	domain.FieldLastName,
	domain.FieldBirth,
	domain.FieldGender,
}

func withFields(base []domain.Field, extra ...domain.Field) []domain.Field {
	out := make([]domain.Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// Profile is the static description of one account type.
type Profile struct {
	Type         domain.AccountType
	Policy       domain.AdmissionPolicy
	SignupFields []domain.Field
	// GeneratedUsername is set for types whose username is derived from the
	// account id instead of being chosen by the client.
	GeneratedUsername func(accountID string) string
	// ParentTypes lists the account types a parentAccountId may point at,
	// searched in order.
	ParentTypes []domain.AccountType
}

// Profiles is the dispatch table for every known account type.
var Profiles = map[domain.AccountType]Profile{
	domain.AccountService: {
		Type:         domain.AccountService,
		Policy:       domain.PolicyTakeover,
		SignupFields: []domain.Field{domain.FieldPassword, domain.FieldComment},
		GeneratedUsername: func(accountID string) string {
			return "svc-" + accountID
		},
	},
	domain.AccountRoot: {
		Type:         domain.AccountRoot,
		Policy:       domain.PolicyExclusive,
		SignupFields: []domain.Field{domain.FieldUsername, domain.FieldPassword, domain.FieldEmail},
	},
	domain.AccountPersonal: {
		Type:         domain.AccountPersonal,
		Policy:       domain.PolicyCohabit,
		SignupFields: personalFields,
	},
	domain.AccountBusiness: {
		Type:         domain.AccountBusiness,
		Policy:       domain.PolicyCohabit,
		SignupFields: withFields(personalFields, domain.FieldCompanyName),
	},
	domain.AccountDependent: {
		Type:         domain.AccountDependent,
		Policy:       domain.PolicyCohabit,
		SignupFields: withFields(personalFields, domain.FieldParentAccountID),
		ParentTypes:  []domain.AccountType{domain.AccountPersonal, domain.AccountBusiness},
	},
}

// AccountStore is one account type's table.
type AccountStore interface {
	Insert(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

type credentialStore interface {
	Put(ctx context.Context, c *domain.Credential) error
	Get(ctx context.Context, accountID string) (*domain.Credential, error)
}

// Registry binds every Profile to its backing account table.
type Registry struct {
	accounts    map[domain.AccountType]AccountStore
	credentials credentialStore
	newID       func(time.Time) string
	now         func() time.Time
}

type RegistryDeps struct {
	Accounts    map[domain.AccountType]AccountStore
	Credentials credentialStore
}

func NewRegistry(deps RegistryDeps) (*Registry, error) {
	for t := range Profiles {
		if deps.Accounts[t] == nil {
			return nil, fmt.Errorf("no account store for type %q", t)
		}
	}
	return &Registry{
		accounts:    deps.Accounts,
		credentials: deps.Credentials,
		newID:       id.NewAt,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Profile returns the profile for t or ErrNotFound.
func (r *Registry) Profile(t domain.AccountType) (Profile, error) {
	p, ok := Profiles[t]
	if !ok {
		return Profile{}, fmt.Errorf("account type %q: %w", t, domain.ErrNotFound)
	}
	return p, nil
}

// Schema returns the Session Object fields for a session of purpose on t.
func (r *Registry) Schema(purpose domain.Purpose, t domain.AccountType) ([]domain.Field, error) {
	p, err := r.Profile(t)
	if err != nil {
		return nil, err
	}
	switch purpose {
	case domain.PurposeSignin:
		return domain.SigninFields, nil
	case domain.PurposeSignup:
		return p.SignupFields, nil
	}
	return nil, fmt.Errorf("purpose %q has no session schema: %w", purpose, domain.ErrNotFound)
}

// Policy returns the admission policy of t.
func (r *Registry) Policy(t domain.AccountType) (domain.AdmissionPolicy, error) {
	p, err := r.Profile(t)
	if err != nil {
		return domain.PolicyCohabit, err
	}
	return p.Policy, nil
}

// Persist writes the account document, then its credential. obj.Password must
// already hold the digest.
//
// The two writes are not transactional. When the credential write fails the
// account document stays behind and a *domain.PartialSignupError carrying its
// id is returned.
func (r *Registry) Persist(ctx context.Context, t domain.AccountType, obj *domain.SessionObject) (string, error) {
	p, err := r.Profile(t)
	if err != nil {
		return "", err
	}
	store := r.accounts[t]

	now := r.now()
	accountID := r.newID(now)
	username := obj.Username
	if p.GeneratedUsername != nil {
		username = p.GeneratedUsername(accountID)
	}
	if _, err := store.GetByUsername(ctx, username); err == nil {
		return "", fmt.Errorf("username already taken: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if obj.ParentAccountID != "" {
		if err := r.checkParent(ctx, p, obj.ParentAccountID); err != nil {
			return "", err
		}
	}

	a := &domain.Account{
		AccountID:       accountID,
		AccountType:     t,
		Username:        username,
		Email:           obj.Email,
		FirstName:       obj.FirstName,
		LastName:        obj.LastName,
		Birth:           obj.Birth,
		Gender:          obj.Gender,
		CompanyName:     obj.CompanyName,
		ParentAccountID: obj.ParentAccountID,
		Comment:         obj.Comment,
		Enable:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := store.Insert(ctx, a); err != nil {
		return "", err
	}
	cred := &domain.Credential{
		AccountID:    accountID,
		AccountType:  t,
		PasswordHash: obj.Password,
		CreatedAt:    now,
	}
	if err := r.credentials.Put(ctx, cred); err != nil {
		return "", &domain.PartialSignupError{AccountType: t, AccountID: accountID, Err: err}
	}
	return accountID, nil
}

// checkParent requires parentID to be an enabled account of one of p's
// parent types.
func (r *Registry) checkParent(ctx context.Context, p Profile, parentID string) error {
	for _, t := range p.ParentTypes {
		parent, err := r.accounts[t].Get(ctx, parentID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if !parent.Enable {
			return fmt.Errorf("parent account %s disabled: %w", parentID, domain.ErrNotAccepted)
		}
		return nil
	}
	return fmt.Errorf("parent account %s: %w", parentID, domain.ErrNotAccepted)
}

// Resolve looks up an enabled account of type t by username.
func (r *Registry) Resolve(ctx context.Context, t domain.AccountType, username string) (*domain.Account, error) {
	if _, err := r.Profile(t); err != nil {
		return nil, err
	}
	a, err := r.accounts[t].GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !a.Enable {
		return nil, fmt.Errorf("account %s disabled: %w", a.AccountID, domain.ErrForbidden)
	}
	return a, nil
}

// Digest returns the stored password digest of accountID.
func (r *Registry) Digest(ctx context.Context, accountID string) (string, error) {
	c, err := r.credentials.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	return c.PasswordHash, nil
}

// Exists reports whether accountID is a live account of type t.
func (r *Registry) Exists(ctx context.Context, t domain.AccountType, accountID string) (bool, error) {
	if _, err := r.Profile(t); err != nil {
		return false, err
	}
	if _, err := r.accounts[t].Get(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
