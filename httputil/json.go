// httputil/json.go
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v as JSON with the given status code. Status codes
// outside 100-599 are clamped to 500. Encoding failures happen after the
// header is sent, so they can only be logged.
func WriteJSON(w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("json encoding failed after headers sent",
			zap.String("type", typeName(v)),
			zap.Error(err))
	}
}

// JSONError writes a structured JSON error with an error code and message.
func JSONError(w http.ResponseWriter, status int, code, message string, logger *zap.Logger) {
	WriteJSON(w, status, ErrorResponse{Error: code, Message: message}, logger)
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
