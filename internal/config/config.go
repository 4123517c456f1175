// Package config loads the service configuration once at startup from an
// optional .env file, an optional YAML file and the process environment, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LsSens/backend-erp/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment names.
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// Identity provider names.
const (
	IdentityCognito = "cognito"
	IdentityNoop    = "noop"
)

// developmentJWTSecret signs tokens when no secret is configured outside production.
const developmentJWTSecret = "development-only-secret"

// Config holds all application configuration.
type Config struct {
	Environment string `yaml:"environment"`

	Server        ServerConfig        `yaml:"server"`
	AWS           AWSConfig           `yaml:"aws"`
	Identity      IdentityConfig      `yaml:"identity"`
	Auth          AuthConfig          `yaml:"auth"`
	MercadoLivre  MercadoLivreConfig  `yaml:"mercadolivre"`
	Events        EventsConfig        `yaml:"events"`
	RateLimit     RateLimitConfig     `yaml:"rateLimit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Port               int           `yaml:"port"`
	APIVersion         string        `yaml:"apiVersion"`
	RequestTimeout     time.Duration `yaml:"requestTimeout"`
	CORSAllowedOrigins []string      `yaml:"corsAllowedOrigins"`
	// DebugErrors returns raw messages of unclassified errors to clients.
	DebugErrors bool `yaml:"debugErrors"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
	// DynamoDBEndpoint points the SDK at LocalStack or DynamoDB Local.
	DynamoDBEndpoint string `yaml:"dynamodbEndpoint"`
	TableName        string `yaml:"tableName"`
	GSI1IndexName    string `yaml:"gsi1IndexName"`
	GSI2IndexName    string `yaml:"gsi2IndexName"`
}

type IdentityConfig struct {
	Provider     string `yaml:"provider"`
	UserPoolID   string `yaml:"userPoolId"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwtSecret"`
	JWTExpiresIn time.Duration `yaml:"jwtExpiresIn"`
	JWTIssuer    string        `yaml:"jwtIssuer"`
	// Bypass injects a fixed development identity on every request.
	Bypass     bool   `yaml:"bypass"`
	BypassRole string `yaml:"bypassRole"`
}

type MercadoLivreConfig struct {
	ClientID     string        `yaml:"clientId"`
	ClientSecret string        `yaml:"clientSecret"`
	RedirectURI  string        `yaml:"redirectUri"`
	CodeVerifier string        `yaml:"codeVerifier"`
	BaseURL      string        `yaml:"baseUrl"`
	Timeout      time.Duration `yaml:"timeout"`
}

type EventsConfig struct {
	// BusName selects EventBridge publishing; empty disables events.
	BusName string `yaml:"busName"`
	Source  string `yaml:"source"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type ObservabilityConfig struct {
	ServiceName  string `yaml:"serviceName"`
	Version      string `yaml:"version"`
	LogLevel     string `yaml:"logLevel"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	MetricsPath  string `yaml:"metricsPath"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Port:               3000,
			APIVersion:         "v1",
			RequestTimeout:     30 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		AWS: AWSConfig{
			Region:        "us-east-1",
			TableName:     "erp-users",
			GSI1IndexName: "GSI1",
			GSI2IndexName: "GSI2",
		},
		Auth: AuthConfig{
			JWTExpiresIn: 24 * time.Hour,
			BypassRole:   string(domain.RoleAdmin),
		},
		MercadoLivre: MercadoLivreConfig{
			BaseURL: "https://api.mercadolibre.com",
			Timeout: 10 * time.Second,
		},
		Events: EventsConfig{Source: "backend-erp"},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   15 * time.Minute,
		},
		Observability: ObservabilityConfig{
			ServiceName: "backend-erp",
			Version:     "1.0.0",
			LogLevel:    "info",
			MetricsPath: "/metrics",
		},
	}
}

// Load builds and validates the configuration. A missing .env file is not an
// error; a CONFIG_FILE that cannot be read or parsed is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides every field whose environment variable is set.
func (c *Config) applyEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Server.APIVersion = getEnv("API_VERSION", c.Server.APIVersion)
	c.Server.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.Server.RequestTimeout)
	c.Server.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.Server.CORSAllowedOrigins)
	c.Server.DebugErrors = getEnvBool("DEBUG_ERRORS", c.Server.DebugErrors)

	c.AWS.Region = getEnv("AWS_REGION", c.AWS.Region)
	c.AWS.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", c.AWS.DynamoDBEndpoint)
	c.AWS.TableName = getEnv("DYNAMODB_TABLE", c.AWS.TableName)
	c.AWS.GSI1IndexName = getEnv("GSI1_INDEX_NAME", c.AWS.GSI1IndexName)
	c.AWS.GSI2IndexName = getEnv("GSI2_INDEX_NAME", c.AWS.GSI2IndexName)

	c.Identity.Provider = getEnv("IDENTITY_PROVIDER", c.Identity.Provider)
	c.Identity.UserPoolID = getEnv("COGNITO_USER_POOL_ID", c.Identity.UserPoolID)
	c.Identity.ClientID = getEnv("COGNITO_CLIENT_ID", c.Identity.ClientID)
	c.Identity.ClientSecret = getEnv("COGNITO_CLIENT_SECRET", c.Identity.ClientSecret)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWTExpiresIn = getEnvDuration("JWT_EXPIRES_IN", c.Auth.JWTExpiresIn)
	c.Auth.JWTIssuer = getEnv("JWT_ISSUER", c.Auth.JWTIssuer)
	c.Auth.Bypass = getEnvBool("AUTH_BYPASS", c.Auth.Bypass)
	c.Auth.BypassRole = getEnv("AUTH_BYPASS_ROLE", c.Auth.BypassRole)

	c.MercadoLivre.ClientID = getEnv("ML_CLIENT_ID", c.MercadoLivre.ClientID)
	c.MercadoLivre.ClientSecret = getEnv("ML_CLIENT_SECRET", c.MercadoLivre.ClientSecret)
	c.MercadoLivre.RedirectURI = getEnv("ML_REDIRECT_URI", c.MercadoLivre.RedirectURI)
	c.MercadoLivre.CodeVerifier = getEnv("ML_CODE_VERIFIER", c.MercadoLivre.CodeVerifier)
	c.MercadoLivre.BaseURL = getEnv("ML_BASE_URL", c.MercadoLivre.BaseURL)

	c.Events.BusName = getEnv("EVENT_BUS_NAME", c.Events.BusName)

	c.RateLimit.Requests = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimit.Requests)
	c.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)

	c.Observability.LogLevel = getEnv("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Observability.OTLPEndpoint)
}

func (c *Config) applyEnvironmentDefaults() {
	if c.Identity.Provider == "" {
		if c.IsProduction() {
			c.Identity.Provider = IdentityCognito
		} else {
			c.Identity.Provider = IdentityNoop
		}
	}
	if c.Auth.JWTSecret == "" && !c.IsProduction() {
		c.Auth.JWTSecret = developmentJWTSecret
	}
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Production, Test:
	default:
		errs = append(errs, fmt.Errorf("ENVIRONMENT must be one of development, production, test; got %q", c.Environment))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535; got %d", c.Server.Port))
	}
	if c.Server.APIVersion == "" {
		errs = append(errs, errors.New("API_VERSION is required"))
	}
	if c.AWS.TableName == "" {
		errs = append(errs, errors.New("DYNAMODB_TABLE is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if !domain.Role(c.Auth.BypassRole).IsValid() {
		errs = append(errs, fmt.Errorf("AUTH_BYPASS_ROLE must be admin, manager or user; got %q", c.Auth.BypassRole))
	}
	if c.Auth.Bypass && c.IsProduction() {
		errs = append(errs, errors.New("AUTH_BYPASS cannot be enabled in production"))
	}
	if c.Server.DebugErrors && c.IsProduction() {
		errs = append(errs, errors.New("DEBUG_ERRORS cannot be enabled in production"))
	}

	switch c.Identity.Provider {
	case IdentityNoop:
		if c.IsProduction() {
			errs = append(errs, errors.New("IDENTITY_PROVIDER noop cannot be used in production"))
		}
	case IdentityCognito:
		if c.Identity.UserPoolID == "" || c.Identity.ClientID == "" {
			errs = append(errs, errors.New("COGNITO_USER_POOL_ID and COGNITO_CLIENT_ID are required for the cognito identity provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("IDENTITY_PROVIDER must be cognito or noop; got %q", c.Identity.Provider))
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}

	return errors.Join(errs...)
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// Address is the listen address of the HTTP server.
func (c *Config) Address() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

// APIPrefix is the path every API route is mounted under.
func (c *Config) APIPrefix() string {
	return "/api/" + c.Server.APIVersion
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15m", "24h") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
