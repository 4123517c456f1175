package ddb

import (
	"context"
	"fmt"
	"time"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/repository"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// IntegrationRepository stores marketplace integrations in the single table.
type IntegrationRepository struct {
	base
}

var _ repository.IntegrationRepository = (*IntegrationRepository)(nil)

// NewIntegrationRepository creates an integration repository. metrics may be nil.
func NewIntegrationRepository(client DynamoAPI, cfg repository.Config, logger *zap.Logger, metrics MetricsRecorder) *IntegrationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntegrationRepository{base{
		client:   client,
		requests: NewRequests(cfg),
		logger:   logger.Named("integration_repository"),
		metrics:  metrics,
	}}
}

// Create writes the integration with all three index keys.
func (r *IntegrationRepository) Create(ctx context.Context, integration domain.MarketplaceIntegration) error {
	in, err := r.requests.IntegrationPutInput(integration)
	if err != nil {
		return fmt.Errorf("marshal integration: %w", err)
	}

	start := time.Now()
	_, err = r.client.PutItem(ctx, in)
	r.observe("PutIntegration", start, err)
	if err != nil {
		return fmt.Errorf("put integration: %w", err)
	}
	return nil
}

// Get returns the integration or nil when absent.
func (r *IntegrationRepository) Get(ctx context.Context, key domain.IntegrationKey) (*domain.MarketplaceIntegration, error) {
	start := time.Now()
	out, err := r.client.GetItem(ctx, r.requests.IntegrationGetInput(key))
	r.observe("GetIntegration", start, err)
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item integrationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal integration: %w", err)
	}
	integration := item.toDomain()
	return &integration, nil
}

// ListByUser returns every integration the user owns.
func (r *IntegrationRepository) ListByUser(ctx context.Context, userID string) ([]domain.MarketplaceIntegration, error) {
	in, err := r.requests.IntegrationsByUserInput(userID)
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}
	return r.queryAll(ctx, "QueryIntegrationsByUser", in)
}

// ListByUserAndType returns the user's integrations of one marketplace.
func (r *IntegrationRepository) ListByUserAndType(ctx context.Context, userID string, marketplaceType domain.MarketplaceType) ([]domain.MarketplaceIntegration, error) {
	in, err := r.requests.IntegrationsByUserAndTypeInput(userID, marketplaceType)
	if err != nil {
		return nil, fmt.Errorf("build user and type query: %w", err)
	}
	return r.queryAll(ctx, "QueryIntegrationsByUserAndType", in)
}

// ListByType returns every integration of a marketplace, across users.
func (r *IntegrationRepository) ListByType(ctx context.Context, marketplaceType domain.MarketplaceType) ([]domain.MarketplaceIntegration, error) {
	in, err := r.requests.IntegrationsByTypeInput(marketplaceType)
	if err != nil {
		return nil, fmt.Errorf("build type query: %w", err)
	}
	return r.queryAll(ctx, "QueryIntegrationsByType", in)
}

// ListByStatus returns every integration currently in status.
func (r *IntegrationRepository) ListByStatus(ctx context.Context, status domain.IntegrationStatus) ([]domain.MarketplaceIntegration, error) {
	in, err := r.requests.IntegrationsByStatusInput(status)
	if err != nil {
		return nil, fmt.Errorf("build status query: %w", err)
	}
	return r.queryAll(ctx, "QueryIntegrationsByStatus", in)
}

// queryAll follows LastEvaluatedKey until the query is exhausted.
func (r *IntegrationRepository) queryAll(ctx context.Context, operation string, in *dynamodb.QueryInput) ([]domain.MarketplaceIntegration, error) {
	var raw []map[string]types.AttributeValue

	for {
		start := time.Now()
		out, err := r.client.Query(ctx, in)
		r.observe(operation, start, err)
		if err != nil {
			return nil, fmt.Errorf("query integrations: %w", err)
		}
		raw = append(raw, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	return unmarshalIntegrations(raw)
}

// List reads a single scan page of at most limit integrations.
func (r *IntegrationRepository) List(ctx context.Context, limit int, token string) (repository.Page[domain.MarketplaceIntegration], error) {
	var page repository.Page[domain.MarketplaceIntegration]

	in, err := r.requests.IntegrationScanInput(limit, token)
	if err != nil {
		return page, err
	}

	start := time.Now()
	out, err := r.client.Scan(ctx, in)
	r.observe("ScanIntegrations", start, err)
	if err != nil {
		return page, fmt.Errorf("scan integrations: %w", err)
	}

	if page.Items, err = unmarshalIntegrations(out.Items); err != nil {
		return page, err
	}
	page.NextToken, err = encodeToken(out.LastEvaluatedKey)
	if err != nil {
		return page, fmt.Errorf("encode pagination token: %w", err)
	}
	return page, nil
}

// Update writes only the supplied fields. The status index key is written
// whenever the caller supplies it.
func (r *IntegrationRepository) Update(ctx context.Context, key domain.IntegrationKey, changes repository.IntegrationChanges) (*domain.MarketplaceIntegration, error) {
	in, err := r.requests.IntegrationUpdateInput(key, integrationUpdateFields(changes))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := r.client.UpdateItem(ctx, in)
	r.observe("UpdateIntegration", start, err)
	if err != nil {
		if isConditionFailed(err) {
			return nil, appErrors.NewNotFoundError("Marketplace integration").WithCause(err)
		}
		return nil, fmt.Errorf("update integration: %w", err)
	}

	var item integrationItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("unmarshal integration: %w", err)
	}
	integration := item.toDomain()
	return &integration, nil
}

// Delete removes the integration. Deleting a missing key is a no-op.
func (r *IntegrationRepository) Delete(ctx context.Context, key domain.IntegrationKey) error {
	start := time.Now()
	_, err := r.client.DeleteItem(ctx, r.requests.IntegrationDeleteInput(key))
	r.observe("DeleteIntegration", start, err)
	if err != nil {
		return fmt.Errorf("delete integration: %w", err)
	}
	return nil
}

func integrationUpdateFields(changes repository.IntegrationChanges) UpdateFields {
	var fields UpdateFields
	if changes.AccessToken != nil {
		fields.Set("accessToken", *changes.AccessToken)
	}
	if changes.RefreshToken != nil {
		fields.Set("refreshToken", *changes.RefreshToken)
	}
	if changes.SellerID != nil {
		fields.Set("sellerId", *changes.SellerID)
	}
	if changes.StoreName != nil {
		fields.Set("storeName", *changes.StoreName)
	}
	if changes.Status != nil {
		fields.Set("status", string(*changes.Status))
	}
	if changes.StatusIndexKey != nil {
		fields.Set("GSI2PK", *changes.StatusIndexKey)
	}
	if changes.LastSyncAt != nil {
		fields.Set("lastSyncAt", *changes.LastSyncAt)
	}
	if changes.ErrorMessage != nil {
		fields.Set("errorMessage", *changes.ErrorMessage)
	}
	if changes.UpdatedAt != "" {
		fields.Set("updatedAt", changes.UpdatedAt)
	}
	return fields
}

func unmarshalIntegrations(raw []map[string]types.AttributeValue) ([]domain.MarketplaceIntegration, error) {
	var items []integrationItem
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, fmt.Errorf("unmarshal integrations: %w", err)
	}
	out := make([]domain.MarketplaceIntegration, 0, len(items))
	for _, item := range items {
		out = append(out, item.toDomain())
	}
	return out, nil
}
