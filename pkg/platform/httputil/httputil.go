// Package httputil centralizes JSON encoding and error translation for the
// HTTP transport so every handler produces the same envelope.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "leadgate/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for every failed request.
type ErrorResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	ErrorCode string            `json:"errorCode"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates an error into the JSON error envelope. Internal
// errors get a generic message; everything else passes the domain message
// through.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok {
		de = dErrors.New(dErrors.CodeInternal, "internal error")
	}

	resp := ErrorResponse{
		Success:   false,
		Message:   de.Message,
		ErrorCode: string(de.Code),
		Errors:    de.Fields,
	}
	if de.Code == dErrors.CodeInternal {
		resp.Message = "internal error"
		resp.Errors = nil
	}
	WriteJSON(w, dErrors.ToHTTPStatus(de.Code), resp)
}

// Decode parses a JSON request body into T, logging and responding on failure.
// Returns false if the request has already been answered.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.DebugContext(r.Context(), "request decode failed", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		var zero T
		return zero, false
	}
	return req, true
}
