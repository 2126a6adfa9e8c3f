package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/General-creator/biz-automation-pilot-sub000/pkg/apperrors"
)

// ApiResponse is the JSON envelope used by every endpoint.
type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse writes a JSON error envelope and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiResponse{
		Success: false,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// statusForError maps service errors to an HTTP status and caller-safe
// message. Anything unrecognized is a server error; its detail stays in the
// logs, never in the response.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrMissingFields):
		return http.StatusBadRequest, "Missing required fields: automationName and status"
	case errors.Is(err, apperrors.ErrBadTimestamp):
		return http.StatusBadRequest, "Invalid timestamp: must be RFC 3339"
	case errors.Is(err, apperrors.ErrInvalidStatus):
		return http.StatusBadRequest, "Status must be connected or disconnected"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}
