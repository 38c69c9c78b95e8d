package dynamo

// DynamoDB attribute names used in key conditions and update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	attrAccountID = "account_id"
	attrTokenID   = "token_id"
	attrUsername  = "username"
	attrIsActive  = "is_active"
	attrUpdatedAt = "updated_at"

	indexUsername  = "username-index"
	indexAccountID = "account_id-index"
)
