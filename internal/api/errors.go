package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sqoia-dev/panel.sh/internal/asset"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeServiceUnavailable writes a 503 error response.
func writeServiceUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeValidationError writes a 400 response carrying the per-field messages.
func writeValidationError(w http.ResponseWriter, verr *asset.ValidationError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"status": http.StatusBadRequest,
		"code":   ErrCodeValidation,
		"errors": verr.Fields,
	})
}

// writeAssetError maps asset service errors to HTTP responses.
// Status mapping lives only here: validation failures become 400 with the
// field map, unknown assets become 404, everything else is a 500.
func (s *Server) writeAssetError(w http.ResponseWriter, err error) {
	var verr *asset.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.Is(err, asset.ErrNotFound):
		writeNotFound(w, "asset not found")
	case errors.Is(err, asset.ErrExists):
		writeBadRequest(w, "asset already exists")
	default:
		s.logger.Error("asset operation failed", "error", err)
		writeInternalError(w, "internal server error")
	}
}
