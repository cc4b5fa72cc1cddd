package middleware

import (
	"net/http"

	"github.com/dalemusser/cinemadb/httputil"
	"go.uber.org/zap"
)

// NotFoundHandler returns a handler that logs a 404 and returns a JSON error body.
// It is designed to be passed directly to chi.Router.NotFound(..).
func NotFoundHandler(logger *zap.Logger) http.HandlerFunc {
	return jsonStatus(logger, http.StatusNotFound, "not_found",
		"The requested resource was not found")
}

// MethodNotAllowedHandler returns a handler that logs a 405 and returns a JSON error body.
// It is designed to be passed directly to chi.Router.MethodNotAllowed(..).
func MethodNotAllowedHandler(logger *zap.Logger) http.HandlerFunc {
	return jsonStatus(logger, http.StatusMethodNotAllowed, "method_not_allowed",
		"The requested HTTP method is not allowed for this resource")
}

func jsonStatus(logger *zap.Logger, status int, code, message string) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Info(code,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_ip", r.RemoteAddr),
		)
		httputil.JSONError(w, status, code, message, logger)
	}
}
