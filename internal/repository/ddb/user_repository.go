package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/repository"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// UserRepository stores users in the single table.
type UserRepository struct {
	base
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a user repository. metrics may be nil.
func NewUserRepository(client DynamoAPI, cfg repository.Config, logger *zap.Logger, metrics MetricsRecorder) *UserRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserRepository{base{
		client:   client,
		requests: NewRequests(cfg),
		logger:   logger.Named("user_repository"),
		metrics:  metrics,
	}}
}

// Create writes the user and its email reservation in one transaction so two
// concurrent creations with the same email cannot both succeed.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	userPut, err := r.requests.UserPutInput(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	guardPut, err := r.requests.EmailGuardPutInput(user)
	if err != nil {
		return fmt.Errorf("marshal email guard: %w", err)
	}

	notExists := aws.String("attribute_not_exists(PK)")
	start := time.Now()
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: userPut.TableName, Item: userPut.Item, ConditionExpression: notExists}},
			{Put: &types.Put{TableName: guardPut.TableName, Item: guardPut.Item, ConditionExpression: notExists}},
		},
	})
	r.observe("CreateUser", start, err)
	if err != nil {
		if isTransactionConditionFailed(err) {
			return appErrors.NewConflictError("User with this email already exists").WithCause(err)
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetByID returns the user or nil when absent.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	start := time.Now()
	out, err := r.client.GetItem(ctx, r.requests.UserGetInput(id))
	r.observe("GetUser", start, err)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	user := item.toDomain()
	return &user, nil
}

// GetByEmail looks the email up on GSI1. It returns nil when nobody has it.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	in, err := r.requests.UserByEmailInput(email)
	if err != nil {
		return nil, fmt.Errorf("build email query: %w", err)
	}

	start := time.Now()
	out, err := r.client.Query(ctx, in)
	r.observe("GetUserByEmail", start, err)
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	user := item.toDomain()
	return &user, nil
}

// List reads a single scan page of at most limit users.
func (r *UserRepository) List(ctx context.Context, limit int, token string) (repository.Page[domain.User], error) {
	var page repository.Page[domain.User]

	in, err := r.requests.UserScanInput(limit, token)
	if err != nil {
		return page, err
	}

	start := time.Now()
	out, err := r.client.Scan(ctx, in)
	r.observe("ScanUsers", start, err)
	if err != nil {
		return page, fmt.Errorf("scan users: %w", err)
	}

	var items []userItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return page, fmt.Errorf("unmarshal users: %w", err)
	}
	page.Items = make([]domain.User, 0, len(items))
	for _, item := range items {
		page.Items = append(page.Items, item.toDomain())
	}

	page.NextToken, err = encodeToken(out.LastEvaluatedKey)
	if err != nil {
		return page, fmt.Errorf("encode pagination token: %w", err)
	}
	return page, nil
}

// Update writes only the supplied fields plus updatedAt.
func (r *UserRepository) Update(ctx context.Context, id string, changes repository.UserChanges) (*domain.User, error) {
	var fields UpdateFields
	if changes.Name != nil {
		fields.Set("name", *changes.Name)
	}
	if changes.Role != nil {
		fields.Set("role", string(*changes.Role))
	}
	if changes.IsActive != nil {
		fields.Set("isActive", *changes.IsActive)
	}
	if changes.UpdatedAt != "" {
		fields.Set("updatedAt", changes.UpdatedAt)
	}

	in, err := r.requests.UserUpdateInput(id, fields)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := r.client.UpdateItem(ctx, in)
	r.observe("UpdateUser", start, err)
	if err != nil {
		if isConditionFailed(err) {
			return nil, appErrors.NewNotFoundError("User").WithCause(err)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	user := item.toDomain()
	return &user, nil
}

// Delete removes the user item and releases its email in one transaction.
func (r *UserRepository) Delete(ctx context.Context, user domain.User) error {
	userDel := r.requests.UserDeleteInput(user.ID)
	guardDel := r.requests.EmailGuardDeleteInput(user.Email)

	start := time.Now()
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{TableName: userDel.TableName, Key: userDel.Key}},
			{Delete: &types.Delete{TableName: guardDel.TableName, Key: guardDel.Key}},
		},
	})
	r.observe("DeleteUser", start, err)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
