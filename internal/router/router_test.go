package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/LsSens/backend-erp/internal/config"
	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/handlers"
	"github.com/LsSens/backend-erp/internal/identity"
	"github.com/LsSens/backend-erp/internal/marketplace"
	"github.com/LsSens/backend-erp/internal/middleware"
	"github.com/LsSens/backend-erp/internal/observability"
	"github.com/LsSens/backend-erp/internal/repository/mocks"
	"github.com/LsSens/backend-erp/internal/service/integration"
	"github.com/LsSens/backend-erp/internal/service/user"
	"github.com/LsSens/backend-erp/pkg/auth"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "router-test-secret"

type testServer struct {
	handler http.Handler
	users   *mocks.MockUserRepository
	items   *mocks.MockIntegrationRepository
	tokens  *auth.JWTGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	cfg := config.Default()
	cfg.Auth.JWTSecret = secret

	gen, err := auth.NewJWTGenerator(auth.JWTConfig{SecretKey: secret, Expiry: time.Hour})
	require.NoError(t, err)
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: secret})
	require.NoError(t, err)

	collector := observability.NewCollector("erp_test")
	users := mocks.NewMockUserRepository()
	items := mocks.NewMockIntegrationRepository()

	factory := marketplace.NewFactory().Register(domain.MarketplaceMercadoLivre,
		marketplace.ExchangerFunc(func(_ context.Context, code string) (*domain.AuthInfo, error) {
			return &domain.AuthInfo{AccessToken: "APP_USR-" + code, RefreshToken: "TG-" + code, SellerID: "99", StoreName: "LOJA"}, nil
		}))

	errorHandler := appErrors.NewErrorHandler(logger, false)
	userSvc := user.NewService(users, identity.Noop{}, gen, nil, collector, logger, nil)
	integrationSvc := integration.NewService(items, factory, nil, collector, logger, nil)

	rt := NewRouter(
		cfg,
		handlers.NewUserHandler(userSvc, errorHandler, logger),
		handlers.NewIntegrationHandler(integrationSvc, errorHandler, logger),
		handlers.NewHealthHandler(nil, logger),
		middleware.NewAuthenticator(validator, middleware.BypassOptions{}, logger),
		middleware.NewIPRateLimiter(1000, time.Minute, collector),
		collector,
		errorHandler,
		logger,
	)
	return &testServer{handler: rt.Setup(), users: users, items: items, tokens: gen}
}

func (s *testServer) token(t *testing.T, sub string, role domain.Role) string {
	t.Helper()
	tok, err := s.tokens.GenerateToken(sub, sub+"@example.com", "Test "+sub, string(role))
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func TestRouter_Operational(t *testing.T) {
	s := newTestServer(t)

	t.Run("Should report health without authentication", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, env.Success)
		assert.Equal(t, "API is working", env.Message)
	})

	t.Run("Should answer unknown routes with 404", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "Route not found", env.Error)
	})

	t.Run("Should expose metrics outside the API prefix", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "erp_test_http_requests_total")
	})

	t.Run("Should set security headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
}

func TestRouter_UserRoutes(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin-1", domain.RoleAdmin)
	plain := s.token(t, "user-1", domain.RoleUser)

	t.Run("Should require a token", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Authentication token not provided", env.Error)
	})

	t.Run("Should reject a token signed with another key", func(t *testing.T) {
		gen, err := auth.NewJWTGenerator(auth.JWTConfig{SecretKey: "wrong"})
		require.NoError(t, err)
		forged, err := gen.GenerateToken("x", "x@x.com", "X", "admin")
		require.NoError(t, err)

		code, env := s.do(t, http.MethodGet, "/api/v1/users", forged, nil)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Invalid or expired token", env.Error)
	})

	t.Run("Should gate listing to managers", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/users", plain, nil)
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "Manager or Admin access required", env.Error)
	})

	t.Run("Should gate creation to admins", func(t *testing.T) {
		manager := s.token(t, "m-1", domain.RoleManager)
		code, env := s.do(t, http.MethodPost, "/api/v1/users", manager, map[string]string{
			"email": "new@example.com", "name": "New", "role": "user", "password": "secret1",
		})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "Admin access required", env.Error)
	})

	var created domain.User
	t.Run("Should create, read, update and delete a user", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/users", admin, map[string]string{
			"email": "ana@example.com", "name": "Ana Souza", "role": "manager", "password": "secret1",
		})
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "User created successfully", env.Message)
		require.NoError(t, json.Unmarshal(env.Data, &created))
		assert.NotContains(t, string(env.Data), "password")

		code, env = s.do(t, http.MethodGet, "/api/v1/users/"+created.ID, plain, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "User found successfully", env.Message)

		code, env = s.do(t, http.MethodPut, "/api/v1/users/"+created.ID, admin, map[string]interface{}{"isActive": false})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "User updated successfully", env.Message)
		assert.Contains(t, string(env.Data), `"isActive":false`)

		code, env = s.do(t, http.MethodDelete, "/api/v1/users/"+created.ID, admin, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "User deleted successfully", env.Message)
		assert.Zero(t, s.users.Len())
	})

	t.Run("Should answer 404 for a missing user", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/users/missing", plain, nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "User not found", env.Error)

		deletes := s.users.Calls("Delete")
		code, env = s.do(t, http.MethodDelete, "/api/v1/users/nonexistent-id", admin, nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "User not found", env.Error)
		assert.Equal(t, deletes, s.users.Calls("Delete"))
	})

	t.Run("Should validate the create payload", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/users", admin, map[string]string{
			"email": "not-an-email", "name": "Ana", "role": "user", "password": "secret1",
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Error)

		code, _ = s.do(t, http.MethodPost, "/api/v1/users", admin, "{not json")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should reject an update without fields", func(t *testing.T) {
		s.users.Seed(domain.User{ID: "u-9", Email: "u9@example.com", IsActive: true})

		code, env := s.do(t, http.MethodPut, "/api/v1/users/u-9", admin, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "No fields to update", env.Error)
	})

	t.Run("Should map a duplicate email to 409", func(t *testing.T) {
		body := map[string]string{"email": "dup@example.com", "name": "Dup", "role": "user", "password": "secret1"}
		code, _ := s.do(t, http.MethodPost, "/api/v1/users", admin, body)
		require.Equal(t, http.StatusCreated, code)

		code, env := s.do(t, http.MethodPost, "/api/v1/users", admin, body)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "User with this email already exists", env.Error)
	})

	t.Run("Should fall back to default pagination", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/users?page=0&limit=abc", admin, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Users listed successfully", env.Message)

		var page domain.Page[domain.User]
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, 10, page.Limit)
	})

	t.Run("Should not log in without a password-checking identity provider", func(t *testing.T) {
		s.users.Seed(domain.User{ID: "boss", Email: "boss@example.com", Name: "Boss", Role: domain.RoleAdmin, IsActive: true})

		code, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email": "boss@example.com", "password": "definitely-wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.False(t, env.Success)
		assert.Equal(t, "Login is not available with the configured identity provider", env.Error)
		assert.Empty(t, env.Data)
	})
}

func TestRouter_IntegrationRoutes(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, "u-1", domain.RoleUser)
	manager := s.token(t, "m-1", domain.RoleManager)

	code, env := s.do(t, http.MethodPost, "/api/v1/marketplace-integrations", owner, map[string]string{
		"marketplaceType": "mercadolivre", "code": "TG-abc",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Marketplace integration created successfully", env.Message)

	var created domain.MarketplaceIntegration
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.Equal(t, "u-1", created.UserID)
	assert.Equal(t, domain.StatusActive, created.Status)

	shortRef := fmt.Sprintf("u-1:mercadolivre:%s", created.ID)
	base := "/api/v1/marketplace-integrations/"

	t.Run("Should find the integration by either reference form", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, base+shortRef, owner, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Marketplace integration found successfully", env.Message)

		composite := url.PathEscape(created.Key().String())
		code, _ = s.do(t, http.MethodGet, base+composite, owner, nil)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("Should answer 404 and 400 for missing and malformed references", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, base+"u-1:mercadolivre:missing", owner, nil)
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "Marketplace integration not found", env.Error)

		code, _ = s.do(t, http.MethodGet, base+"just-an-id", owner, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should reject unsupported marketplaces", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/marketplace-integrations", owner, map[string]string{
			"marketplaceType": "shopee", "code": "x",
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Marketplace type not supported", env.Error)
	})

	t.Run("Should require a status when patching status", func(t *testing.T) {
		code, env := s.do(t, http.MethodPatch, base+shortRef+"/status", owner, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Status not provided", env.Error)
	})

	t.Run("Should move the integration between status listings", func(t *testing.T) {
		code, env := s.do(t, http.MethodPatch, base+shortRef+"/status", owner, map[string]string{
			"status": "error", "errorMessage": "token revoked",
		})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Integration status updated successfully", env.Message)

		code, env = s.do(t, http.MethodGet, base+"status/error", manager, nil)
		require.Equal(t, http.StatusOK, code)
		var errored []domain.MarketplaceIntegration
		require.NoError(t, json.Unmarshal(env.Data, &errored))
		require.Len(t, errored, 1)
		assert.Equal(t, "token revoked", errored[0].ErrorMessage)
	})

	t.Run("Should require an access token when refreshing", func(t *testing.T) {
		code, env := s.do(t, http.MethodPatch, base+shortRef+"/refresh-token", owner, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Access token not provided", env.Error)

		code, env = s.do(t, http.MethodPatch, base+shortRef+"/refresh-token", owner, map[string]string{"accessToken": "fresh"})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Access token refreshed successfully", env.Message)
	})

	t.Run("Should list by owner and gate listings by type to managers", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, base+"user/u-1", owner, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "User marketplace integrations found successfully", env.Message)

		code, _ = s.do(t, http.MethodGet, base+"type/mercadolivre", owner, nil)
		assert.Equal(t, http.StatusForbidden, code)

		code, env = s.do(t, http.MethodGet, base+"type/mercadolivre", manager, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Marketplace integrations by type found successfully", env.Message)

		code, _ = s.do(t, http.MethodGet, base+"type/ebay", manager, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should delete by owner, type and id", func(t *testing.T) {
		code, env := s.do(t, http.MethodDelete, base+"u-1/mercadolivre/"+created.ID, owner, nil)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Marketplace integration deleted successfully", env.Message)
		assert.Zero(t, s.items.Len())
	})
}
