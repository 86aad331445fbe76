package web

// errors.go provides unified error response handling for the web
// layer. Every failure is logged with full technical detail
// server-side and returned to the client as a single JSON envelope:
//
//	{"error": "message", "details": ["..."]}
//
// The message is what the handler chose to expose; the underlying
// error never leaves the process except through logs.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardfile/cardfile/internal/logging"
)

// ErrorResponse is the JSON envelope for all API error responses.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// respondError logs the technical error with the request ID and
// writes the client-facing envelope. err may be nil when the failure
// is purely a client mistake with nothing extra to log.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"request_id", middleware.GetReqID(r.Context()),
	}
	if err != nil {
		args = append(args, "error", err.Error())
	}
	logger.Error("request failed", args...)

	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeJSON encodes v with the given status. Encode failures are
// logged only; headers are already on the wire.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
