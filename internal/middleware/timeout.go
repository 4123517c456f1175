package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LsSens/backend-erp/pkg/api"

	"github.com/go-chi/chi/v5/middleware"
)

// Timeout bounds the request context. A handler that gives up on the deadline
// without writing a response gets a 504 envelope.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if ww.Status() == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				api.Error(w, http.StatusGatewayTimeout, "Request timeout")
			}
		})
	}
}
