// Package middleware holds the HTTP middleware chain: authentication and role
// gates, request logging, metrics, rate limiting and security headers.
package middleware

import (
	"context"
	"net/http"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/pkg/api"
	"github.com/LsSens/backend-erp/pkg/auth"

	"go.uber.org/zap"
)

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   domain.Role
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller set by Authenticate, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// BypassOptions configures the development bypass. It is active only when
// Enabled is set.
type BypassOptions struct {
	Enabled bool
	Role    domain.Role
}

// DevelopmentIdentity returns the fixed caller injected by the bypass.
func DevelopmentIdentity(role domain.Role) *Identity {
	return &Identity{
		UserID: "dev-user-id",
		Email:  "dev@example.com",
		Name:   "Development User",
		Role:   role,
	}
}

// Authenticator validates bearer tokens.
type Authenticator struct {
	validator *auth.JWTValidator
	bypass    BypassOptions
	logger    *zap.Logger
}

// NewAuthenticator creates an authenticator. validator may be nil only when
// the bypass is enabled.
func NewAuthenticator(validator *auth.JWTValidator, bypass BypassOptions, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bypass.Enabled {
		if !bypass.Role.IsValid() {
			bypass.Role = domain.RoleAdmin
		}
		logger.Warn("Authentication bypass enabled", zap.String("role", string(bypass.Role)))
	}
	return &Authenticator{validator: validator, bypass: bypass, logger: logger}
}

// Authenticate requires a valid "Bearer <jwt>" Authorization header and
// attaches the token's identity to the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.bypass.Enabled {
			ctx := WithIdentity(r.Context(), DevelopmentIdentity(a.bypass.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			api.Error(w, http.StatusUnauthorized, "Authentication token not provided")
			return
		}

		claims, err := a.validator.ValidateToken(token)
		if err != nil {
			a.logger.Warn("Invalid token",
				zap.Error(err),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			api.Error(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := WithIdentity(r.Context(), &Identity{
			UserID: claims.UserID,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   domain.ParseRole(claims.Role),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers whose role ranks below required. forbidden is
// the 403 message.
func RequireRole(required domain.Role, forbidden string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				api.Error(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !domain.HasPermission(id.Role, required) {
				api.Error(w, http.StatusForbidden, forbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser admits any authenticated caller.
func RequireUser(next http.Handler) http.Handler {
	return RequireRole(domain.RoleUser, "Insufficient permissions")(next)
}

// RequireManager admits managers and admins.
func RequireManager(next http.Handler) http.Handler {
	return RequireRole(domain.RoleManager, "Manager or Admin access required")(next)
}

// RequireAdmin admits admins only.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(domain.RoleAdmin, "Admin access required")(next)
}
