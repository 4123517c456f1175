package handlers

import (
	"net/http"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/service/integration"
	"github.com/LsSens/backend-erp/pkg/api"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"
	"github.com/LsSens/backend-erp/pkg/validation"

	"go.uber.org/zap"
)

// IntegrationHandler serves the /marketplace-integrations routes.
type IntegrationHandler struct {
	service integration.Service
	errors  *appErrors.ErrorHandler
	logger  *zap.Logger
}

// NewIntegrationHandler creates a new marketplace integration handler
func NewIntegrationHandler(service integration.Service, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{service: service, errors: errorHandler, logger: logger}
}

// ListIntegrations handles GET /marketplace-integrations
func (h *IntegrationHandler) ListIntegrations(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)

	page, err := h.service.List(r.Context(), p.Page, p.Limit, p.Token)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, page, "Marketplace integrations listed successfully")
}

// GetIntegration handles GET /marketplace-integrations/{id}
func (h *IntegrationHandler) GetIntegration(w http.ResponseWriter, r *http.Request) {
	key, err := integrationKeyParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	it, err := h.service.Get(r.Context(), key)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if it == nil {
		h.errors.Handle(w, r, appErrors.NewNotFoundError("Marketplace integration"))
		return
	}
	api.Success(w, http.StatusOK, it, "Marketplace integration found successfully")
}

// ListByUser handles GET /marketplace-integrations/user/{userId}
func (h *IntegrationHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "userId")
	if userID == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("User ID not provided"))
		return
	}

	items, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, items, "User marketplace integrations found successfully")
}

// ListByType handles GET /marketplace-integrations/type/{marketplaceType}
func (h *IntegrationHandler) ListByType(w http.ResponseWriter, r *http.Request) {
	t := domain.MarketplaceType(pathParam(r, "marketplaceType"))
	if t == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("Marketplace type not provided"))
		return
	}
	if !t.IsValid() {
		h.errors.Handle(w, r, appErrors.NewValidationError("Invalid marketplace type"))
		return
	}

	items, err := h.service.ListByType(r.Context(), t)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, items, "Marketplace integrations by type found successfully")
}

// ListByStatus handles GET /marketplace-integrations/status/{status}
func (h *IntegrationHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := domain.IntegrationStatus(pathParam(r, "status"))
	if !status.IsValid() {
		h.errors.Handle(w, r, appErrors.NewValidationError("Invalid status"))
		return
	}

	items, err := h.service.ListByStatus(r.Context(), status)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, items, "Marketplace integrations by status found successfully")
}

// CreateIntegration handles POST /marketplace-integrations. The caller owns
// the new integration.
func (h *IntegrationHandler) CreateIntegration(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var input domain.CreateIntegrationInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := validation.Struct(input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	it, err := h.service.Create(r.Context(), input, id.UserID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, it, "Marketplace integration created successfully")
}

// UpdateIntegration handles PUT /marketplace-integrations/{id}
func (h *IntegrationHandler) UpdateIntegration(w http.ResponseWriter, r *http.Request) {
	key, err := integrationKeyParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var input domain.UpdateIntegrationInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := validation.Struct(input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	it, err := h.service.Update(r.Context(), key, input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, it, "Marketplace integration updated successfully")
}

// DeleteIntegration handles DELETE /marketplace-integrations/{userId}/{marketplaceType}/{id}
func (h *IntegrationHandler) DeleteIntegration(w http.ResponseWriter, r *http.Request) {
	key := domain.IntegrationKey{
		UserID:          pathParam(r, "userId"),
		MarketplaceType: domain.MarketplaceType(pathParam(r, "marketplaceType")),
		ID:              pathParam(r, "id"),
	}
	if err := key.Validate(); err != nil {
		h.errors.Handle(w, r, appErrors.NewValidationError("User ID, marketplace type, or integration ID not provided").WithCause(err))
		return
	}

	if err := h.service.Delete(r.Context(), key); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, nil, "Marketplace integration deleted successfully")
}

// UpdateStatus handles PATCH /marketplace-integrations/{id}/status
func (h *IntegrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	key, err := integrationKeyParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var input domain.UpdateStatusInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if input.Status == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("Status not provided"))
		return
	}
	if err := validation.Struct(input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	it, err := h.service.UpdateStatus(r.Context(), key, input.Status, input.ErrorMessage)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, it, "Integration status updated successfully")
}

// RefreshToken handles PATCH /marketplace-integrations/{id}/refresh-token
func (h *IntegrationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	key, err := integrationKeyParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var input domain.RefreshTokenInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if input.AccessToken == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("Access token not provided"))
		return
	}

	it, err := h.service.RefreshAccessToken(r.Context(), key, input.AccessToken, input.RefreshToken)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, it, "Access token refreshed successfully")
}
