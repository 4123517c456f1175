package di

import (
	"context"
	"fmt"

	"github.com/LsSens/backend-erp/internal/config"
	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/events"
	"github.com/LsSens/backend-erp/internal/handlers"
	"github.com/LsSens/backend-erp/internal/identity"
	"github.com/LsSens/backend-erp/internal/marketplace"
	"github.com/LsSens/backend-erp/internal/middleware"
	"github.com/LsSens/backend-erp/internal/observability"
	"github.com/LsSens/backend-erp/internal/repository"
	"github.com/LsSens/backend-erp/internal/repository/ddb"
	"github.com/LsSens/backend-erp/internal/service/integration"
	"github.com/LsSens/backend-erp/internal/service/user"
	"github.com/LsSens/backend-erp/pkg/auth"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	if cfg.Observability.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.Observability.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Observability.LogLevel, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(
		zap.String("service", cfg.Observability.ServiceName),
		zap.String("environment", cfg.Environment),
	), nil
}

// ProvideAWSConfig creates AWS configuration. A local DynamoDB endpoint gets
// static credentials so no AWS profile is needed.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	if cfg.AWS.DynamoDBEndpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// ProvideDynamoDBClient creates a DynamoDB client. Only the SDK's standard
// retryer retries, and only throttling and transient failures.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		o.RetryMaxAttempts = 3
		if cfg.AWS.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideRepositoryConfig maps table settings onto the repository layer.
func ProvideRepositoryConfig(cfg *config.Config) repository.Config {
	return repository.NewConfig(cfg.AWS.TableName, cfg.AWS.GSI1IndexName, cfg.AWS.GSI2IndexName)
}

// ProvideUserRepository creates a user repository
func ProvideUserRepository(
	client *awsdynamodb.Client,
	repoCfg repository.Config,
	logger *zap.Logger,
	metrics *observability.Collector,
) repository.UserRepository {
	return ddb.NewUserRepository(client, repoCfg, logger, metrics)
}

// ProvideIntegrationRepository creates a marketplace integration repository
func ProvideIntegrationRepository(
	client *awsdynamodb.Client,
	repoCfg repository.Config,
	logger *zap.Logger,
	metrics *observability.Collector,
) repository.IntegrationRepository {
	return ddb.NewIntegrationRepository(client, repoCfg, logger, metrics)
}

// ProvideIdentityProvider selects Cognito or the local no-op provider.
func ProvideIdentityProvider(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) identity.Provider {
	if cfg.Identity.Provider != config.IdentityCognito {
		logger.Warn("Using no-op identity provider", zap.String("environment", cfg.Environment))
		return identity.Noop{}
	}
	return identity.NewCognito(
		cognitoidentityprovider.NewFromConfig(awsCfg),
		identity.CognitoConfig{
			UserPoolID:   cfg.Identity.UserPoolID,
			ClientID:     cfg.Identity.ClientID,
			ClientSecret: cfg.Identity.ClientSecret,
		},
		logger,
	)
}

// ProvideMarketplaceFactory registers every marketplace with an exchanger.
func ProvideMarketplaceFactory(cfg *config.Config, logger *zap.Logger) *marketplace.Factory {
	ml := marketplace.NewMercadoLivre(marketplace.MercadoLivreConfig{
		ClientID:     cfg.MercadoLivre.ClientID,
		ClientSecret: cfg.MercadoLivre.ClientSecret,
		RedirectURI:  cfg.MercadoLivre.RedirectURI,
		CodeVerifier: cfg.MercadoLivre.CodeVerifier,
		BaseURL:      cfg.MercadoLivre.BaseURL,
		Timeout:      cfg.MercadoLivre.Timeout,
	}, logger)

	return marketplace.NewFactory().Register(domain.MarketplaceMercadoLivre, ml)
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) events.Publisher {
	if cfg.Events.BusName == "" {
		return events.Noop{}
	}
	return events.NewLogged(
		events.NewEventBridgePublisher(client, cfg.Events.BusName, cfg.Events.Source, logger),
		logger,
	)
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		SecretKey: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.JWTIssuer,
		Expiry:    cfg.Auth.JWTExpiresIn,
	}
}

// ProvideJWTGenerator creates the session token issuer
func ProvideJWTGenerator(cfg *config.Config) (*auth.JWTGenerator, error) {
	return auth.NewJWTGenerator(jwtConfig(cfg))
}

// ProvideJWTValidator creates the session token validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	return auth.NewJWTValidator(jwtConfig(cfg))
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("backend_erp")
}

// ProvideTracing installs the global tracer provider
func ProvideTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName: cfg.Observability.ServiceName,
		Version:     cfg.Observability.Version,
		Environment: cfg.Environment,
		Endpoint:    cfg.Observability.OTLPEndpoint,
	})
}

func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	return tp.Tracer()
}

// ProvideUserService creates the user service
func ProvideUserService(
	repo repository.UserRepository,
	provider identity.Provider,
	tokens *auth.JWTGenerator,
	publisher events.Publisher,
	metrics *observability.Collector,
	logger *zap.Logger,
	tracer trace.Tracer,
) user.Service {
	return user.NewService(repo, provider, tokens, publisher, metrics, logger, tracer)
}

// ProvideIntegrationService creates the marketplace integration service
func ProvideIntegrationService(
	repo repository.IntegrationRepository,
	factory *marketplace.Factory,
	publisher events.Publisher,
	metrics *observability.Collector,
	logger *zap.Logger,
	tracer trace.Tracer,
) integration.Service {
	return integration.NewService(repo, factory, publisher, metrics, logger, tracer)
}

// ProvideErrorHandler exposes raw error text only when DEBUG_ERRORS is set.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *appErrors.ErrorHandler {
	return appErrors.NewErrorHandler(logger, cfg.Server.DebugErrors)
}

// ProvideReadinessChecks probes the table with DescribeTable.
func ProvideReadinessChecks(client *awsdynamodb.Client, cfg *config.Config) map[string]handlers.ReadinessCheck {
	table := cfg.AWS.TableName
	return map[string]handlers.ReadinessCheck{
		"dynamodb": func(ctx context.Context) error {
			_, err := client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{TableName: aws.String(table)})
			return err
		},
	}
}

// ProvideAuthenticator creates the bearer token middleware
func ProvideAuthenticator(validator *auth.JWTValidator, cfg *config.Config, logger *zap.Logger) *middleware.Authenticator {
	return middleware.NewAuthenticator(validator, middleware.BypassOptions{
		Enabled: cfg.Auth.Bypass,
		Role:    domain.Role(cfg.Auth.BypassRole),
	}, logger)
}

// ProvideRateLimiter creates the per-IP limiter
func ProvideRateLimiter(cfg *config.Config, metrics *observability.Collector) *middleware.IPRateLimiter {
	return middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, metrics)
}
