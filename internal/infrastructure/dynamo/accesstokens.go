package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-session-auth/internal/domain"
)

// AccessTokenRepo provides typed DynamoDB operations for the access token ledger.
// PK: token_id, GSI account_id-index.
type AccessTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccessTokenRepo(client *dynamodb.Client, tableName string) *AccessTokenRepo {
	return &AccessTokenRepo{client: client, tableName: tableName}
}

// Insert writes a new ledger record. A reused token_id fails with ErrKeyExists.
func (r *AccessTokenRepo) Insert(ctx context.Context, t *domain.AccessToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal access token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(token_id)"),
	})
	return wrapErr("insert access token", err, domain.ErrKeyExists)
}

func (r *AccessTokenRepo) Get(ctx context.Context, tokenID string) (*domain.AccessToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrTokenID, tokenID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, wrapErr("get access token", err, nil)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("access token not found: %w", domain.ErrNotFound)
	}
	var t domain.AccessToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListActiveByAccount returns every active record for accountID, following
// pagination of the account_id-index GSI.
func (r *AccessTokenRepo) ListActiveByAccount(ctx context.Context, accountID string) ([]domain.AccessToken, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexAccountID),
		KeyConditionExpression: aws.String("account_id = :aid"),
		FilterExpression:       aws.String("is_active = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: accountID},
			":t":   &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	var tokens []domain.AccessToken
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("query active access tokens", err, nil)
		}
		var page []domain.AccessToken
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		tokens = append(tokens, page...)
	}
	return tokens, nil
}

func (r *AccessTokenRepo) Update(ctx context.Context, tokenID string, updates map[string]interface{}) error {
	ue, err := buildUpdateExpr(stamped(updates, time.Now().UTC()))
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrTokenID, tokenID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(token_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return wrapErr("update access token", err, domain.ErrNotFound)
}
