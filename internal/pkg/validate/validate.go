package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-session-auth/internal/domain"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

func init() {
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		var upper, lower, digit bool
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		return upper && lower && digit
	})
	// bcrypt reads at most 72 bytes; max=72 alone counts runes.
	_ = v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= 72
	})
}

// fieldRules holds the validator tag applied to each Session Object field.
var fieldRules = map[domain.Field]string{
	domain.FieldUsername:        "required,min=3,max=32,username",
	domain.FieldPassword:        "required,min=8,bcrypt_len,password_strength",
	domain.FieldEmail:           "required,email,max=254",
	domain.FieldFirstName:       "required,max=64",
	domain.FieldLastName:        "required,max=64",
	domain.FieldBirth:           "required,datetime=2006-01-02",
	domain.FieldGender:          "required,oneof=female male other undisclosed",
	domain.FieldCompanyName:     "required,max=128",
	domain.FieldParentAccountID: "required,ulid",
	domain.FieldComment:         "required,max=256",
}

// typeRules tightens individual fields for specific account types.
var typeRules = map[domain.AccountType]map[domain.Field]string{
	domain.AccountRoot: {
		domain.FieldPassword: "required,min=12,bcrypt_len,password_strength",
	},
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Field checks the content of a single Session Object value for accountType.
func Field(accountType domain.AccountType, field domain.Field, value string) error {
	tag, ok := typeRules[accountType][field]
	if !ok {
		tag, ok = fieldRules[field]
	}
	if !ok {
		return fmt.Errorf("unknown field '%s'", field)
	}
	if err := v.Var(value, tag); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok || len(ve) == 0 {
			return err
		}
		return fmt.Errorf("field '%s' failed '%s'", field, ve[0].Tag())
	}
	return nil
}

// Validator adapts Field to the interface the session service consumes.
type Validator struct{}

func (Validator) Validate(accountType domain.AccountType, field domain.Field, value string) error {
	return Field(accountType, field, value)
}
