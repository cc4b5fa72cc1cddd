// health/health.go
package health

import (
	"context"
	"net/http"
	"sort"

	"github.com/dalemusser/cinemadb/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Check is a single probe. It returns nil when the dependency is healthy.
// ctx is derived from the incoming request.
type Check func(ctx context.Context) error

// Response is the JSON body returned by the handler.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler runs checks on every request. With no checks it is a plain
// liveness probe answering {"status":"ok"}. Any failing check turns the
// response into a 503 with per-check results.
func Handler(checks map[string]Check, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"}, logger)
			return
		}

		results := make(map[string]string, len(checks))
		failed := false
		for _, name := range names {
			check := checks[name]
			if check == nil {
				results[name] = "ok"
				continue
			}
			if err := check(r.Context()); err != nil {
				failed = true
				results[name] = "error: " + err.Error()
				logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				continue
			}
			results[name] = "ok"
		}

		if failed {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, Response{Status: "error", Checks: results}, logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok", Checks: results}, logger)
	})
}

// MountAt attaches the handler at path (e.g. "/health", "/ready").
func MountAt(r chi.Router, path string, checks map[string]Check, logger *zap.Logger) {
	r.Method(http.MethodGet, path, Handler(checks, logger))
}
