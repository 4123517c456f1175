package handlers

import (
	"net/http"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/service/user"
	"github.com/LsSens/backend-erp/pkg/api"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"
	"github.com/LsSens/backend-erp/pkg/validation"

	"go.uber.org/zap"
)

// UserHandler serves the /users routes.
type UserHandler struct {
	service user.Service
	errors  *appErrors.ErrorHandler
	logger  *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service user.Service, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: service, errors: errorHandler, logger: logger}
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r)

	page, err := h.service.List(r.Context(), p.Page, p.Limit, p.Token)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, page, "Users listed successfully")
}

// GetUser handles GET /users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("User ID not provided"))
		return
	}

	u, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if u == nil {
		h.errors.Handle(w, r, appErrors.NewNotFoundError("User"))
		return
	}
	api.Success(w, http.StatusOK, u, "User found successfully")
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateUserInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := validation.Struct(input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	u, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusCreated, u, "User created successfully")
}

// UpdateUser handles PUT /users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("User ID not provided"))
		return
	}

	var input domain.UpdateUserInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := validation.Struct(input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if input.IsEmpty() {
		h.errors.Handle(w, r, appErrors.NewValidationError("No fields to update"))
		return
	}

	u, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, u, "User updated successfully")
}

// DeleteUser handles DELETE /users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		h.errors.Handle(w, r, appErrors.NewValidationError("User ID not provided"))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, nil, "User deleted successfully")
}

// Login handles POST /auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.LoginInput
	if err := decodeJSON(w, r, &input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := validation.Struct(input); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	session, err := h.service.Authenticate(r.Context(), input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.logger.Info("User logged in", zap.String("user_id", session.User.ID))
	api.Success(w, http.StatusOK, session, "Login successful")
}

// Me handles GET /auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]interface{}{
		"sub":   id.UserID,
		"email": id.Email,
		"name":  id.Name,
		"role":  id.Role,
	}, "Authenticated user")
}
