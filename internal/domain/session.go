package domain

import "time"

// Purpose is carried in every bearer token and says what the token may be used for.
type Purpose string

const (
	PurposeSignin Purpose = "signin-session"
	PurposeSignup Purpose = "signup-session"
	PurposeAccess Purpose = "access"
)

// IsSession reports whether p names one of the multi-step session phases.
func (p Purpose) IsSession() bool {
	return p == PurposeSignin || p == PurposeSignup
}

// Field names a Session Object attribute. The string value is also the Redis
// hash field and the URL segment clients use.
type Field string

const (
	FieldUsername        Field = "username"
	FieldPassword        Field = "password"
	FieldEmail           Field = "email"
	FieldFirstName       Field = "firstName"
	FieldLastName        Field = "lastName"
	FieldBirth           Field = "birth"
	FieldGender          Field = "gender"
	FieldCompanyName     Field = "companyName"
	FieldParentAccountID Field = "parentAccountId"
	FieldComment         Field = "comment"
)

// SigninFields is the schema of every signin session regardless of account type.
var SigninFields = []Field{FieldUsername, FieldPassword}

// SessionObject is the typed partial record accumulated across a multi-step
// flow. Only the fields in its schema are ever populated.
type SessionObject struct {
	Username        string
	Password        string
	Email           string
	FirstName       string
	LastName        string
	Birth           string
	Gender          string
	CompanyName     string
	ParentAccountID string
	Comment         string
}

func (o *SessionObject) ref(f Field) *string {
	switch f {
	case FieldUsername:
		return &o.Username
	case FieldPassword:
		return &o.Password
	case FieldEmail:
		return &o.Email
	case FieldFirstName:
		return &o.FirstName
	case FieldLastName:
		return &o.LastName
	case FieldBirth:
		return &o.Birth
	case FieldGender:
		return &o.Gender
	case FieldCompanyName:
		return &o.CompanyName
	case FieldParentAccountID:
		return &o.ParentAccountID
	case FieldComment:
		return &o.Comment
	}
	return nil
}

// Get returns the value of f and whether f is a known field.
func (o *SessionObject) Get(f Field) (string, bool) {
	p := o.ref(f)
	if p == nil {
		return "", false
	}
	return *p, true
}

// Set assigns v to f. It returns false for unknown fields.
func (o *SessionObject) Set(f Field, v string) bool {
	p := o.ref(f)
	if p == nil {
		return false
	}
	*p = v
	return true
}

// Hash renders the schema fields of o as a flat map for storage.
func (o *SessionObject) Hash(schema []Field) map[string]string {
	out := make(map[string]string, len(schema))
	for _, f := range schema {
		v, _ := o.Get(f)
		out[string(f)] = v
	}
	return out
}

// SessionObjectFromHash rebuilds an object from stored hash fields. Unknown
// keys are ignored.
func SessionObjectFromHash(h map[string]string) *SessionObject {
	o := &SessionObject{}
	for k, v := range h {
		o.Set(Field(k), v)
	}
	return o
}

// FirstMissing returns the first field in schema whose value is empty.
func (o *SessionObject) FirstMissing(schema []Field) (Field, bool) {
	for _, f := range schema {
		if v, _ := o.Get(f); v == "" {
			return f, true
		}
	}
	return "", false
}

// Contains reports whether f is part of schema.
func Contains(schema []Field, f Field) bool {
	for _, s := range schema {
		if s == f {
			return true
		}
	}
	return false
}

// SessionState describes an in-progress flow for clients resuming it.
type SessionState struct {
	Purpose     Purpose     `json:"purpose"`
	AccountType AccountType `json:"account_type"`
	Missing     []Field     `json:"missing"`
	ExpiresAt   time.Time   `json:"expires_at"`
}
