package domain

import "time"

// AccessToken is the persistent ledger record of an issued access token.
// Only IsActive and TwoFactorVerified change after insert.
type AccessToken struct {
	TokenID           string      `json:"id" dynamodbav:"token_id"`
	AccountID         string      `json:"account_id" dynamodbav:"account_id"`
	AccountType       AccountType `json:"account_type" dynamodbav:"account_type"`
	UserAgent         string      `json:"user_agent" dynamodbav:"user_agent"`
	IsActive          bool        `json:"is_active" dynamodbav:"is_active"`
	TwoFactorVerified bool        `json:"two_factor_verified" dynamodbav:"two_factor_verified"`
	CreatedAt         time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time   `json:"updated" dynamodbav:"updated_at"`
}

// AdmissionPolicy governs how many access tokens an account may hold active
// at once and what happens to older ones on a new login.
type AdmissionPolicy int

const (
	// PolicyCohabit inserts a second concurrent login as inactive.
	PolicyCohabit AdmissionPolicy = iota
	// PolicyExclusive refuses a login while another is active.
	PolicyExclusive
	// PolicyTakeover deactivates every active record before inserting.
	PolicyTakeover
)

func (p AdmissionPolicy) String() string {
	switch p {
	case PolicyExclusive:
		return "exclusive"
	case PolicyTakeover:
		return "takeover"
	default:
		return "cohabit"
	}
}
