package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cchalm/codebot/internal/ai"
	"github.com/cchalm/codebot/internal/auth"
	"github.com/cchalm/codebot/internal/filesystem"
	"github.com/cchalm/codebot/internal/project"
	"github.com/cchalm/codebot/internal/todo"
)

// ErrorCode classifies an error response for clients
type ErrorCode string

const (
	CodeInvalidInput   ErrorCode = "INVALID_INPUT"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeCSRFFailed     ErrorCode = "CSRF_FAILED"
	CodeOriginRejected ErrorCode = "ORIGIN_REJECTED"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeUpstreamFailed ErrorCode = "UPSTREAM_FAILED"
	CodeTimeout        ErrorCode = "TIMEOUT"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error envelope with the given status
func WriteError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	WriteJSON(w, ErrorResponse{Error: message, Code: code}, status)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeInvalidInput, message)
}

// NotFound writes a 404 Not Found error
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, message)
}

// WriteErr maps err to a status and code and writes it
func WriteErr(w http.ResponseWriter, err error) {
	status, code := MapErrorToStatus(err)
	WriteError(w, status, code, err.Error())
}

// MapErrorToStatus maps domain errors to HTTP status codes
func MapErrorToStatus(err error) (int, ErrorCode) {
	var apiErr *ai.APIError
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrSessionExpired):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, auth.ErrCSRFMismatch):
		return http.StatusForbidden, CodeCSRFFailed
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUsernameRequired),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, todo.ErrTitleRequired),
		errors.Is(err, todo.ErrTitleTooLong),
		errors.Is(err, project.ErrNotDirectory):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, todo.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, project.ErrOutsideProjects),
		errors.Is(err, filesystem.ErrFileNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, CodeUpstreamFailed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
