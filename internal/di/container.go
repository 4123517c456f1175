// Package di wires the application graph with google/wire. wire_gen.go is
// generated from wire.go; regenerate it with `wire ./internal/di` after
// changing a provider signature.
package di

import (
	"context"

	"github.com/LsSens/backend-erp/internal/config"
	"github.com/LsSens/backend-erp/internal/middleware"
	"github.com/LsSens/backend-erp/internal/observability"
	"github.com/LsSens/backend-erp/internal/router"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Router      *router.Router
	RateLimiter *middleware.IPRateLimiter
	Metrics     *observability.Collector
	Tracing     *observability.TracerProvider
}

// Shutdown flushes spans and the logger.
func (c *Container) Shutdown(ctx context.Context) error {
	err := c.Tracing.Shutdown(ctx)
	_ = c.Logger.Sync()
	return err
}
