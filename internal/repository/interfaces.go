// Package repository defines the persistence contracts the domain services
// depend on. The DynamoDB implementation lives in the ddb subpackage.
package repository

import (
	"context"

	"github.com/LsSens/backend-erp/internal/domain"
)

// Page is one chunk of a scan. NextToken is empty on the last page.
type Page[T any] struct {
	Items     []T
	NextToken string
}

// UserRepository persists users.
type UserRepository interface {
	// Create fails with a conflict error if the email is already taken.
	Create(ctx context.Context, user domain.User) error
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns nil, nil when no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, limit int, token string) (Page[domain.User], error)
	// Update fails with a not found error if the user does not exist.
	Update(ctx context.Context, id string, changes UserChanges) (*domain.User, error)
	Delete(ctx context.Context, user domain.User) error
}

// UserChanges lists the attributes an update writes. Nil fields are skipped.
type UserChanges struct {
	Name      *string
	Role      *domain.Role
	IsActive  *bool
	UpdatedAt string
}

// IntegrationRepository persists marketplace integrations.
type IntegrationRepository interface {
	Create(ctx context.Context, integration domain.MarketplaceIntegration) error
	// Get returns nil, nil when the integration does not exist.
	Get(ctx context.Context, key domain.IntegrationKey) (*domain.MarketplaceIntegration, error)
	ListByUser(ctx context.Context, userID string) ([]domain.MarketplaceIntegration, error)
	ListByUserAndType(ctx context.Context, userID string, marketplaceType domain.MarketplaceType) ([]domain.MarketplaceIntegration, error)
	ListByType(ctx context.Context, marketplaceType domain.MarketplaceType) ([]domain.MarketplaceIntegration, error)
	ListByStatus(ctx context.Context, status domain.IntegrationStatus) ([]domain.MarketplaceIntegration, error)
	List(ctx context.Context, limit int, token string) (Page[domain.MarketplaceIntegration], error)
	// Update fails with a not found error if the integration does not exist.
	Update(ctx context.Context, key domain.IntegrationKey, changes IntegrationChanges) (*domain.MarketplaceIntegration, error)
	Delete(ctx context.Context, key domain.IntegrationKey) error
}

// IntegrationChanges lists the attributes an update writes. Nil fields are
// skipped. StatusIndexKey must accompany every Status change so GSI2 keeps
// pointing at the current status.
type IntegrationChanges struct {
	AccessToken    *string
	RefreshToken   *string
	SellerID       *string
	StoreName      *string
	Status         *domain.IntegrationStatus
	StatusIndexKey *string
	LastSyncAt     *string
	ErrorMessage   *string
	UpdatedAt      string
}
