package domain

import "time"

// AccountType is the closed set of account kinds. It selects both the signup
// field schema and the access-token admission policy.
type AccountType string

const (
	AccountService   AccountType = "service"
	AccountRoot      AccountType = "root"
	AccountPersonal  AccountType = "personal"
	AccountBusiness  AccountType = "business"
	AccountDependent AccountType = "dependent"
)

// AccountTypes lists every known tag in a stable order.
var AccountTypes = []AccountType{
	AccountService,
	AccountRoot,
	AccountPersonal,
	AccountBusiness,
	AccountDependent,
}

type Account struct {
	AccountID       string      `json:"id" dynamodbav:"account_id"`
	AccountType     AccountType `json:"account_type" dynamodbav:"account_type"`
	Username        string      `json:"username" dynamodbav:"username"`
	Email           string      `json:"email,omitempty" dynamodbav:"email,omitempty"`
	FirstName       string      `json:"first_name,omitempty" dynamodbav:"first_name,omitempty"`
	LastName        string      `json:"last_name,omitempty" dynamodbav:"last_name,omitempty"`
	Birth           string      `json:"birth,omitempty" dynamodbav:"birth,omitempty"` // YYYY-MM-DD
	Gender          string      `json:"gender,omitempty" dynamodbav:"gender,omitempty"`
	CompanyName     string      `json:"company_name,omitempty" dynamodbav:"company_name,omitempty"`
	ParentAccountID string      `json:"parent_account_id,omitempty" dynamodbav:"parent_account_id,omitempty"`
	Comment         string      `json:"comment,omitempty" dynamodbav:"comment,omitempty"`
	Enable          bool        `json:"enable" dynamodbav:"enable"`
	CreatedAt       time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time   `json:"updated" dynamodbav:"updated_at"`
}

// Credential holds the password digest for an account. It lives in its own
// table and is written after the account document during signup.
type Credential struct {
	AccountID    string      `json:"-" dynamodbav:"account_id"`
	AccountType  AccountType `json:"-" dynamodbav:"account_type"`
	PasswordHash string      `json:"-" dynamodbav:"password_hash"`
	CreatedAt    time.Time   `json:"-" dynamodbav:"created_at"`
}
