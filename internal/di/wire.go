//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/LsSens/backend-erp/internal/config"
	"github.com/LsSens/backend-erp/internal/handlers"
	"github.com/LsSens/backend-erp/internal/router"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideRepositoryConfig,
	ProvideUserRepository,
	ProvideIntegrationRepository,
	ProvideIdentityProvider,
	ProvideMarketplaceFactory,
	ProvideEventPublisher,
	ProvideJWTGenerator,
	ProvideJWTValidator,
	ProvideMetrics,
	ProvideTracing,
	ProvideTracer,
	ProvideUserService,
	ProvideIntegrationService,
	ProvideErrorHandler,
	ProvideReadinessChecks,
	ProvideAuthenticator,
	ProvideRateLimiter,
	handlers.NewUserHandler,
	handlers.NewIntegrationHandler,
	handlers.NewHealthHandler,
	router.NewRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
