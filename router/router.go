// router/router.go
package router

import (
	"github.com/dalemusser/cinemadb/logging"
	"github.com/dalemusser/cinemadb/metrics"
	"github.com/dalemusser/cinemadb/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New creates a chi.Router with the standard middleware stack:
// RequestID, RealIP, Recoverer, HTTP metrics, request logging, and JSON
// NotFound / MethodNotAllowed handlers. Routes are mounted by the caller.
func New(logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))
	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
