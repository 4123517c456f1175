package ddb

import (
	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Requests builds DynamoDB request inputs for every access pattern. It does
// no I/O; repositories execute what it returns.
type Requests struct {
	cfg repository.Config
}

// NewRequests creates a request builder bound to the table layout in cfg.
func NewRequests(cfg repository.Config) Requests {
	return Requests{cfg: cfg.WithDefaults()}
}

func primaryKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func userKey(id string) map[string]types.AttributeValue {
	return primaryKey(repository.UserKey(id), repository.UserKey(id))
}

func integrationKey(key domain.IntegrationKey) map[string]types.AttributeValue {
	return primaryKey(repository.UserKey(key.UserID), repository.IntegrationSortKey(key.MarketplaceType, key.ID))
}

func (r Requests) put(item interface{}) (*dynamodb.PutItemInput, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, err
	}
	return &dynamodb.PutItemInput{
		TableName: aws.String(r.cfg.TableName),
		Item:      av,
	}, nil
}

func (r Requests) query(index string, cond expression.KeyConditionBuilder) (*dynamodb.QueryInput, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(cond).Build()
	if err != nil {
		return nil, err
	}
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.cfg.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if index != "" {
		in.IndexName = aws.String(index)
	}
	return in, nil
}

func (r Requests) scan(filter expression.ConditionBuilder, limit int, token string) (*dynamodb.ScanInput, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, err
	}
	startKey, err := decodeToken(token)
	if err != nil {
		return nil, err
	}
	return &dynamodb.ScanInput{
		TableName:                 aws.String(r.cfg.TableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(r.cfg.ClampLimit(limit))),
		ExclusiveStartKey:         startKey,
	}, nil
}

func (r Requests) update(key map[string]types.AttributeValue, fields UpdateFields) (*dynamodb.UpdateItemInput, error) {
	expr, err := buildUpdateExpression(fields)
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.cfg.TableName),
		Key:                       key,
		UpdateExpression:          aws.String(expr.Expression),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  expr.Names,
		ExpressionAttributeValues: expr.Values,
		ReturnValues:              types.ReturnValueAllNew,
	}, nil
}

// UserPutInput overwrites the full user item.
func (r Requests) UserPutInput(u domain.User) (*dynamodb.PutItemInput, error) {
	return r.put(newUserItem(u))
}

// EmailGuardPutInput reserves the user's email.
func (r Requests) EmailGuardPutInput(u domain.User) (*dynamodb.PutItemInput, error) {
	return r.put(newEmailGuardItem(u))
}

// UserGetInput reads one user by id.
func (r Requests) UserGetInput(id string) *dynamodb.GetItemInput {
	return &dynamodb.GetItemInput{
		TableName: aws.String(r.cfg.TableName),
		Key:       userKey(id),
	}
}

// UserByEmailInput queries GSI1 for the user owning an email.
func (r Requests) UserByEmailInput(email string) (*dynamodb.QueryInput, error) {
	return r.query(r.cfg.GSI1IndexName,
		expression.Key("GSI1PK").Equal(expression.Value(repository.EmailIndexKey(email))))
}

// UserUpdateInput assigns the given fields on an existing user and returns
// the item as it is after the update.
func (r Requests) UserUpdateInput(id string, fields UpdateFields) (*dynamodb.UpdateItemInput, error) {
	return r.update(userKey(id), fields)
}

// UserDeleteInput deletes one user by id.
func (r Requests) UserDeleteInput(id string) *dynamodb.DeleteItemInput {
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(r.cfg.TableName),
		Key:       userKey(id),
	}
}

// EmailGuardDeleteInput releases an email reservation.
func (r Requests) EmailGuardDeleteInput(email string) *dynamodb.DeleteItemInput {
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(r.cfg.TableName),
		Key:       primaryKey(repository.EmailIndexKey(email), repository.EmailIndexKey(email)),
	}
}

// UserScanInput reads one page of user items, skipping every other item kind.
func (r Requests) UserScanInput(limit int, token string) (*dynamodb.ScanInput, error) {
	filter := expression.Name("PK").BeginsWith(repository.UserPrefix).
		And(expression.Name("SK").BeginsWith(repository.UserPrefix))
	return r.scan(filter, limit, token)
}

// IntegrationPutInput overwrites the full integration item, index keys included.
func (r Requests) IntegrationPutInput(m domain.MarketplaceIntegration) (*dynamodb.PutItemInput, error) {
	return r.put(newIntegrationItem(m))
}

// IntegrationGetInput reads one integration by its full key.
func (r Requests) IntegrationGetInput(key domain.IntegrationKey) *dynamodb.GetItemInput {
	return &dynamodb.GetItemInput{
		TableName: aws.String(r.cfg.TableName),
		Key:       integrationKey(key),
	}
}

// IntegrationsByUserInput queries every integration in the owner's partition.
func (r Requests) IntegrationsByUserInput(userID string) (*dynamodb.QueryInput, error) {
	return r.query("", expression.Key("PK").Equal(expression.Value(repository.UserKey(userID))).
		And(expression.Key("SK").BeginsWith(repository.MarketplacePrefix)))
}

// IntegrationsByUserAndTypeInput queries the owner's integrations of one marketplace.
func (r Requests) IntegrationsByUserAndTypeInput(userID string, marketplaceType domain.MarketplaceType) (*dynamodb.QueryInput, error) {
	return r.query("", expression.Key("PK").Equal(expression.Value(repository.UserKey(userID))).
		And(expression.Key("SK").BeginsWith(repository.IntegrationTypePrefix(marketplaceType))))
}

// IntegrationsByTypeInput queries GSI1 for every integration of a marketplace.
func (r Requests) IntegrationsByTypeInput(marketplaceType domain.MarketplaceType) (*dynamodb.QueryInput, error) {
	return r.query(r.cfg.GSI1IndexName,
		expression.Key("GSI1PK").Equal(expression.Value(repository.MarketplaceIndexKey(marketplaceType))))
}

// IntegrationsByStatusInput queries GSI2 for every integration in a status.
func (r Requests) IntegrationsByStatusInput(status domain.IntegrationStatus) (*dynamodb.QueryInput, error) {
	return r.query(r.cfg.GSI2IndexName,
		expression.Key("GSI2PK").Equal(expression.Value(repository.StatusIndexKey(status))))
}

// IntegrationUpdateInput assigns the given fields on an existing integration.
func (r Requests) IntegrationUpdateInput(key domain.IntegrationKey, fields UpdateFields) (*dynamodb.UpdateItemInput, error) {
	return r.update(integrationKey(key), fields)
}

// IntegrationDeleteInput deletes one integration by its full key.
func (r Requests) IntegrationDeleteInput(key domain.IntegrationKey) *dynamodb.DeleteItemInput {
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(r.cfg.TableName),
		Key:       integrationKey(key),
	}
}

// IntegrationScanInput reads one page of integration items.
func (r Requests) IntegrationScanInput(limit int, token string) (*dynamodb.ScanInput, error) {
	filter := expression.Name("PK").BeginsWith(repository.UserPrefix).
		And(expression.Name("SK").BeginsWith(repository.MarketplacePrefix))
	return r.scan(filter, limit, token)
}
