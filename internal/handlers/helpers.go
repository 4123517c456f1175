// Package handlers adapts HTTP requests to the domain services and renders
// their results in the response envelope.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/middleware"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100

	maxBodyBytes = 10 << 20
)

// pagination is the parsed ?page&limit&nextToken query.
type pagination struct {
	Page  int
	Limit int
	Token string
}

// parsePagination reads page and limit, falling back to the defaults for
// missing, malformed or out-of-range values.
func parsePagination(r *http.Request) pagination {
	q := r.URL.Query()
	p := pagination{Page: defaultPage, Limit: defaultLimit, Token: q.Get("nextToken")}

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v >= 1 {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v >= 1 && v <= maxLimit {
		p.Limit = v
	}
	return p
}

// decodeJSON reads the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return appErrors.NewValidationError("Request body is required")
		}
		return appErrors.NewValidationError("Invalid request body").WithCause(err)
	}
	return nil
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// integrationKeyParam parses the {id} parameter as an integration reference.
func integrationKeyParam(r *http.Request) (domain.IntegrationKey, error) {
	ref := pathParam(r, "id")
	if ref == "" {
		return domain.IntegrationKey{}, appErrors.NewValidationError("Marketplace integration ID not provided")
	}
	key, err := domain.ParseIntegrationRef(ref)
	if err != nil {
		return domain.IntegrationKey{}, appErrors.NewValidationError("Invalid marketplace integration reference").WithCause(err)
	}
	return key, nil
}

// caller returns the authenticated identity or an unauthorized error.
func caller(r *http.Request) (*middleware.Identity, error) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return nil, appErrors.NewUnauthorizedError("Authentication required")
	}
	return id, nil
}
