package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/LsSens/backend-erp/pkg/api"

	"go.uber.org/zap"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks map[string]ReadinessCheck
	logger *zap.Logger
	now    func() time.Time
}

// NewHealthHandler creates a health handler. checks may be empty.
func NewHealthHandler(checks map[string]ReadinessCheck, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger, now: time.Now}
}

type healthResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Message:   "API is working",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Ready handles GET /ready. It answers 503 when any check fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			results[name] = "unavailable"
			ready = false
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		api.JSON(w, http.StatusServiceUnavailable, api.Response{Success: false, Data: results, Error: "Service not ready"})
		return
	}
	api.Success(w, http.StatusOK, results, "Service ready")
}
