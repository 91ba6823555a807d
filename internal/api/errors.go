// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
	"github.com/antoniofrignani/laravel4-settings/internal/settings"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, detail, requestID string) {
	writeJSON(w, code, errorResponse{Error: kind, Detail: detail, RequestID: requestID})
}

// statusFor maps accessor errors onto HTTP status codes. Unknown errors are
// server faults.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, settings.ErrInvalidKey),
		errors.Is(err, settings.ErrMissingItem):
		return http.StatusBadRequest, "invalid_key"
	case errors.Is(err, settings.ErrUnsupportedValue),
		errors.Is(err, record.ErrInvalidRecord):
		return http.StatusUnprocessableEntity, "invalid_value"
	case errors.Is(err, record.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
