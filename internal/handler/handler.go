// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gophermarket/gophermarket/internal/auth"
	"github.com/gophermarket/gophermarket/internal/handler/dto"
	"github.com/gophermarket/gophermarket/internal/service"
)

// Error codes returned in dto.ErrorResponse.
const (
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeProfileExists     = "PROFILE_EXISTS"
	CodeImageUploadFailed = "IMAGE_UPLOAD_FAILED"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeInternal          = "INTERNAL_ERROR"
)

// NotFound handles 404 responses for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

func writeFieldError(w http.ResponseWriter, status int, code, field, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code, Field: field})
}

// writeServiceError maps service and auth errors to HTTP responses.
// Unclassified errors are logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	var uerr *service.UploadError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		writeError(w, http.StatusUnauthorized, CodeUnauthenticated, err.Error())
	case errors.As(err, &verr):
		writeFieldError(w, http.StatusBadRequest, CodeValidationFailed, verr.Field, verr.Message)
	case errors.As(err, &uerr):
		writeError(w, http.StatusBadRequest, CodeImageUploadFailed, uerr.Error())
	case errors.Is(err, service.ErrNotOwned):
		writeError(w, http.StatusForbidden, CodeForbidden, "You can only modify your own listings.")
	case errors.Is(err, service.ErrListingNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "Listing not found")
	case errors.Is(err, service.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "Profile not found")
	case errors.Is(err, service.ErrProfileExists):
		writeError(w, http.StatusConflict, CodeProfileExists, "Profile already exists")
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large")
	default:
		logger.Error("request failed",
			slog.String("endpoint", r.Method+" "+r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
