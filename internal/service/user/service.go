// Package user provides business logic for user accounts: provisioning in the
// identity provider, persistence and password login.
package user

import (
	"context"
	"errors"
	"time"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/events"
	"github.com/LsSens/backend-erp/internal/identity"
	"github.com/LsSens/backend-erp/internal/repository"
	"github.com/LsSens/backend-erp/pkg/auth"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Service defines the user operations exposed to handlers.
type Service interface {
	Create(ctx context.Context, input domain.CreateUserInput) (*domain.User, error)
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns nil, nil when no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, page, limit int, token string) (*domain.Page[domain.User], error)
	Update(ctx context.Context, id string, input domain.UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id string) error
	Authenticate(ctx context.Context, input domain.LoginInput) (*domain.Session, error)
}

// Metrics receives business counters. It may be nil.
type Metrics interface {
	RecordUserCreated()
	RecordUserDeleted()
}

type service struct {
	repo      repository.UserRepository
	identity  identity.Provider
	tokens    *auth.JWTGenerator
	publisher events.Publisher
	metrics   Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService creates the user service. publisher, metrics and tracer may be nil.
func NewService(
	repo repository.UserRepository,
	provider identity.Provider,
	tokens *auth.JWTGenerator,
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
		tracer = noop.NewTracerProvider().Tracer("user")
	}
	return &service{
		repo:      repo,
		identity:  provider,
		tokens:    tokens,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("user_service"),
		tracer:    tracer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) timestamp() string {
	return s.now().Format(time.RFC3339)
}

func (s *service) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "user."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Create provisions the identity account, then stores the user.
func (s *service) Create(ctx context.Context, input domain.CreateUserInput) (_ *domain.User, err error) {
	ctx, span := s.start(ctx, "Create", attribute.String("user.role", string(input.Role)))
	defer func() { finish(span, err) }()

	existing, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error creating user")
	}
	if existing != nil {
		return nil, appErrors.NewConflictError("User with this email already exists")
	}

	attributes := map[string]string{
		identity.AttrEmail:         input.Email,
		identity.AttrName:          input.Name,
		identity.AttrRole:          string(input.Role),
		identity.AttrEmailVerified: "true",
	}
	if err := s.identity.CreateUser(ctx, input.Email, input.Password, attributes); err != nil {
		return nil, appErrors.Wrap(err, "Error creating user")
	}
	if err := s.identity.SetPassword(ctx, input.Email, input.Password, true); err != nil {
		return nil, appErrors.Wrap(err, "Error creating user")
	}

	now := s.timestamp()
	user := domain.User{
		ID:        uuid.New().String(),
		Email:     input.Email,
		Name:      input.Name,
		Role:      input.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, "Error creating user")
	}

	s.logger.Info("User created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	if s.metrics != nil {
		s.metrics.RecordUserCreated()
	}
	s.publish(ctx, events.New(events.UserCreated, user.ID, user.ID, map[string]string{
		"email": user.Email,
		"role":  string(user.Role),
	}))
	return &user, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error getting user")
	}
	return user, nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error getting user by email")
	}
	return user, nil
}

// List reads one scan page of at most limit users.
func (s *service) List(ctx context.Context, page, limit int, token string) (_ *domain.Page[domain.User], err error) {
	ctx, span := s.start(ctx, "List", attribute.Int("page.limit", limit))
	defer func() { finish(span, err) }()

	result, err := s.repo.List(ctx, limit, token)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error listing users")
	}
	p := domain.NewPage(result.Items, page, limit, result.NextToken)
	return &p, nil
}

// Update mirrors name and role into the identity provider, then writes the
// supplied fields.
func (s *service) Update(ctx context.Context, id string, input domain.UpdateUserInput) (_ *domain.User, err error) {
	ctx, span := s.start(ctx, "Update", attribute.String("user.id", id))
	defer func() { finish(span, err) }()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error updating user")
	}
	if current == nil {
		return nil, appErrors.NewNotFoundError("User")
	}

	if input.Name != nil || input.Role != nil {
		attributes := make(map[string]string, 2)
		if input.Name != nil {
			attributes[identity.AttrName] = *input.Name
		}
		if input.Role != nil {
			attributes[identity.AttrRole] = string(*input.Role)
		}
		if err := s.identity.UpdateAttributes(ctx, current.Email, attributes); err != nil {
			return nil, appErrors.Wrap(err, "Error updating user")
		}
	}

	updated, err := s.repo.Update(ctx, id, repository.UserChanges{
		Name:      input.Name,
		Role:      input.Role,
		IsActive:  input.IsActive,
		UpdatedAt: s.timestamp(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "Error updating user")
	}

	s.publish(ctx, events.New(events.UserUpdated, id, id, map[string]interface{}{
		"role":     updated.Role,
		"isActive": updated.IsActive,
	}))
	return updated, nil
}

// Delete removes the identity account, then the user item.
func (s *service) Delete(ctx context.Context, id string) (err error) {
	ctx, span := s.start(ctx, "Delete", attribute.String("user.id", id))
	defer func() { finish(span, err) }()

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, "Error deleting user")
	}
	if user == nil {
		return appErrors.NewNotFoundError("User")
	}

	if err := s.identity.DeleteUser(ctx, user.Email); err != nil {
		return appErrors.Wrap(err, "Error deleting user")
	}
	if err := s.repo.Delete(ctx, *user); err != nil {
		return appErrors.Wrap(err, "Error deleting user")
	}

	s.logger.Info("User deleted", zap.String("user_id", id))
	if s.metrics != nil {
		s.metrics.RecordUserDeleted()
	}
	s.publish(ctx, events.New(events.UserDeleted, id, id, nil))
	return nil
}

// Authenticate checks the password with the identity provider and issues an
// API token for the stored user.
func (s *service) Authenticate(ctx context.Context, input domain.LoginInput) (_ *domain.Session, err error) {
	ctx, span := s.start(ctx, "Authenticate")
	defer func() { finish(span, err) }()

	if _, err := s.identity.Authenticate(ctx, input.Email, input.Password); err != nil {
		s.logger.Info("Login rejected by identity provider", zap.Error(err))
		if errors.Is(err, identity.ErrChallengeRequired) {
			return nil, appErrors.NewUnauthorizedError("Password change required").WithCause(err)
		}
		if errors.Is(err, identity.ErrUnsupported) {
			return nil, appErrors.NewUnauthorizedError("Login is not available with the configured identity provider").WithCause(err)
		}
		return nil, appErrors.NewUnauthorizedError("Invalid credentials").WithCause(err)
	}

	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, "Error authenticating user")
	}
	if user == nil {
		return nil, appErrors.NewUnauthorizedError("Invalid credentials")
	}
	if !user.IsActive {
		return nil, appErrors.NewForbiddenError("User account is inactive")
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Name, string(user.Role))
	if err != nil {
		return nil, appErrors.Wrap(err, "Error generating token")
	}

	return &domain.Session{
		Token:     token,
		ExpiresIn: int64(s.tokens.ExpiresIn().Seconds()),
		User:      user,
	}, nil
}

func (s *service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("event_type", event.Type), zap.Error(err))
	}
}
