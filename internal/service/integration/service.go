// Package integration manages marketplace integrations: the OAuth credentials a
// user granted for a marketplace store and their sync status.
package integration

import (
	"context"
	"errors"
	"time"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/events"
	"github.com/LsSens/backend-erp/internal/marketplace"
	"github.com/LsSens/backend-erp/internal/repository"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Service defines the integration operations exposed to handlers.
type Service interface {
	Create(ctx context.Context, input domain.CreateIntegrationInput, ownerID string) (*domain.MarketplaceIntegration, error)
	// Get returns nil, nil when the integration does not exist.
	Get(ctx context.Context, key domain.IntegrationKey) (*domain.MarketplaceIntegration, error)
	ListByUser(ctx context.Context, userID string) ([]domain.MarketplaceIntegration, error)
	// GetByUserAndType returns the first integration of the type owned by the
	// user, or nil, nil.
	GetByUserAndType(ctx context.Context, userID string, marketplaceType domain.MarketplaceType) (*domain.MarketplaceIntegration, error)
	ListByType(ctx context.Context, marketplaceType domain.MarketplaceType) ([]domain.MarketplaceIntegration, error)
	ListByStatus(ctx context.Context, status domain.IntegrationStatus) ([]domain.MarketplaceIntegration, error)
	List(ctx context.Context, page, limit int, token string) (*domain.Page[domain.MarketplaceIntegration], error)
	Update(ctx context.Context, key domain.IntegrationKey, input domain.UpdateIntegrationInput) (*domain.MarketplaceIntegration, error)
	UpdateStatus(ctx context.Context, key domain.IntegrationKey, status domain.IntegrationStatus, errorMessage *string) (*domain.MarketplaceIntegration, error)
	RefreshAccessToken(ctx context.Context, key domain.IntegrationKey, accessToken string, refreshToken *string) (*domain.MarketplaceIntegration, error)
	Delete(ctx context.Context, key domain.IntegrationKey) error
}

// Exchanger resolves an authorization code for a marketplace type.
type Exchanger interface {
	Exchange(ctx context.Context, t domain.MarketplaceType, code string) (*domain.AuthInfo, error)
}

// Metrics receives business counters. It may be nil.
type Metrics interface {
	RecordIntegrationCreated(marketplace string)
	RecordStatusChange(status string)
}

type service struct {
	repo      repository.IntegrationRepository
	exchanger Exchanger
	publisher events.Publisher
	metrics   Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService creates the integration service. publisher, metrics and tracer
// may be nil.
func NewService(
	repo repository.IntegrationRepository,
	exchanger Exchanger,
	publisher events.Publisher,
	metrics Metrics,
	logger *zap.Logger,
	tracer trace.Tracer,
) Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("integration")
	}
	return &service{
		repo:      repo,
		exchanger: exchanger,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("integration_service"),
		tracer:    tracer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) timestamp() string {
	return s.now().Format(time.RFC3339)
}

func (s *service) start(ctx context.Context, name string, key domain.IntegrationKey) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "integration."+name, trace.WithAttributes(
		attribute.String("integration.user_id", key.UserID),
		attribute.String("integration.marketplace", string(key.MarketplaceType)),
		attribute.String("integration.id", key.ID),
	))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Create exchanges the authorization code with the marketplace and stores an
// active integration owned by ownerID.
func (s *service) Create(ctx context.Context, input domain.CreateIntegrationInput, ownerID string) (_ *domain.MarketplaceIntegration, err error) {
	ctx, span := s.start(ctx, "Create", domain.IntegrationKey{UserID: ownerID, MarketplaceType: input.MarketplaceType})
	defer func() { finish(span, err) }()

	info, err := s.exchanger.Exchange(ctx, input.MarketplaceType, input.Code)
	if err != nil {
		if errors.Is(err, marketplace.ErrUnsupported) {
			return nil, appErrors.NewValidationError("Marketplace type not supported").WithCause(err)
		}
		s.logger.Error("Marketplace exchange failed",
			zap.String("marketplace", string(input.MarketplaceType)),
			zap.Error(err))
		return nil, appErrors.NewExternalError("Error getting marketplace info", err)
	}

	now := s.timestamp()
	integration := domain.MarketplaceIntegration{
		ID:              uuid.New().String(),
		UserID:          ownerID,
		MarketplaceType: input.MarketplaceType,
		AccessToken:     info.AccessToken,
		RefreshToken:    info.RefreshToken,
		SellerID:        info.SellerID,
		StoreName:       info.StoreName,
		Status:          domain.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, integration); err != nil {
		return nil, appErrors.Wrap(err, "Error creating marketplace integration")
	}

	s.logger.Info("Marketplace integration created",
		zap.String("integration_id", integration.ID),
		zap.String("user_id", ownerID),
		zap.String("marketplace", string(integration.MarketplaceType)))
	if s.metrics != nil {
		s.metrics.RecordIntegrationCreated(string(integration.MarketplaceType))
	}
	s.publish(ctx, events.New(events.IntegrationCreated, integration.ID, ownerID, map[string]string{
		"marketplaceType": string(integration.MarketplaceType),
		"sellerId":        integration.SellerID,
	}))
	return &integration, nil
}

func (s *service) Get(ctx context.Context, key domain.IntegrationKey) (*domain.MarketplaceIntegration, error) {
	integration, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error getting marketplace integration")
	}
	return integration, nil
}

func (s *service) ListByUser(ctx context.Context, userID string) ([]domain.MarketplaceIntegration, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error getting user marketplace integrations")
	}
	return nonNil(items), nil
}

func (s *service) GetByUserAndType(ctx context.Context, userID string, marketplaceType domain.MarketplaceType) (*domain.MarketplaceIntegration, error) {
	items, err := s.repo.ListByUserAndType(ctx, userID, marketplaceType)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error getting marketplace integration")
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (s *service) ListByType(ctx context.Context, marketplaceType domain.MarketplaceType) ([]domain.MarketplaceIntegration, error) {
	items, err := s.repo.ListByType(ctx, marketplaceType)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error getting marketplace integrations by type")
	}
	return nonNil(items), nil
}

func (s *service) ListByStatus(ctx context.Context, status domain.IntegrationStatus) ([]domain.MarketplaceIntegration, error) {
	items, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error getting marketplace integrations by status")
	}
	return nonNil(items), nil
}

func (s *service) List(ctx context.Context, page, limit int, token string) (*domain.Page[domain.MarketplaceIntegration], error) {
	result, err := s.repo.List(ctx, limit, token)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error listing marketplace integrations")
	}
	p := domain.NewPage(result.Items, page, limit, result.NextToken)
	return &p, nil
}

// Update writes the supplied fields. A status change also moves the item to
// the matching GSI2 partition.
func (s *service) Update(ctx context.Context, key domain.IntegrationKey, input domain.UpdateIntegrationInput) (_ *domain.MarketplaceIntegration, err error) {
	ctx, span := s.start(ctx, "Update", key)
	defer func() { finish(span, err) }()

	changes := repository.IntegrationChanges{
		AccessToken:  input.AccessToken,
		RefreshToken: input.RefreshToken,
		SellerID:     input.SellerID,
		StoreName:    input.StoreName,
		Status:       input.Status,
		LastSyncAt:   input.LastSyncAt,
		ErrorMessage: input.ErrorMessage,
	}
	return s.apply(ctx, key, changes, events.IntegrationUpdated)
}

// UpdateStatus moves the integration to status. lastSyncAt is stamped only
// when the new status is active.
func (s *service) UpdateStatus(ctx context.Context, key domain.IntegrationKey, status domain.IntegrationStatus, errorMessage *string) (_ *domain.MarketplaceIntegration, err error) {
	ctx, span := s.start(ctx, "UpdateStatus", key)
	span.SetAttributes(attribute.String("integration.status", string(status)))
	defer func() { finish(span, err) }()

	changes := repository.IntegrationChanges{
		Status:       &status,
		ErrorMessage: errorMessage,
	}
	if status == domain.StatusActive {
		syncedAt := s.timestamp()
		changes.LastSyncAt = &syncedAt
	}

	updated, err := s.apply(ctx, key, changes, events.IntegrationStatusChanged)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordStatusChange(string(status))
	}
	return updated, nil
}

// RefreshAccessToken replaces the stored tokens and nothing else.
func (s *service) RefreshAccessToken(ctx context.Context, key domain.IntegrationKey, accessToken string, refreshToken *string) (_ *domain.MarketplaceIntegration, err error) {
	ctx, span := s.start(ctx, "RefreshAccessToken", key)
	defer func() { finish(span, err) }()

	changes := repository.IntegrationChanges{
		AccessToken:  &accessToken,
		RefreshToken: refreshToken,
	}
	return s.apply(ctx, key, changes, events.IntegrationUpdated)
}

func (s *service) apply(ctx context.Context, key domain.IntegrationKey, changes repository.IntegrationChanges, eventType string) (*domain.MarketplaceIntegration, error) {
	changes.UpdatedAt = s.timestamp()
	if changes.Status != nil {
		indexKey := repository.StatusIndexKey(*changes.Status)
		changes.StatusIndexKey = &indexKey
	}

	updated, err := s.repo.Update(ctx, key, changes)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error updating marketplace integration")
	}

	detail := map[string]string{"marketplaceType": string(updated.MarketplaceType)}
	if changes.Status != nil {
		detail["status"] = string(updated.Status)
	}
	s.publish(ctx, events.New(eventType, updated.ID, updated.UserID, detail))
	return updated, nil
}

// Delete removes the integration. Deleting a missing integration succeeds.
func (s *service) Delete(ctx context.Context, key domain.IntegrationKey) (err error) {
	ctx, span := s.start(ctx, "Delete", key)
	defer func() { finish(span, err) }()

	if err := s.repo.Delete(ctx, key); err != nil {
		return appErrors.Wrap(err, "Error deleting marketplace integration")
	}

	s.logger.Info("Marketplace integration deleted", zap.String("integration", key.String()))
	s.publish(ctx, events.New(events.IntegrationDeleted, key.ID, key.UserID, map[string]string{
		"marketplaceType": string(key.MarketplaceType),
	}))
	return nil
}

func (s *service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("event_type", event.Type), zap.Error(err))
	}
}

func nonNil(items []domain.MarketplaceIntegration) []domain.MarketplaceIntegration {
	if items == nil {
		return []domain.MarketplaceIntegration{}
	}
	return items
}
