// Package httputil writes the JSON error bodies shared by every handler.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/identity/internal/errors"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// errorMapping ties a sentinel to its status, error code and public message. An empty
// message means the wrapped error text is safe to return.
type errorMapping struct {
	sentinel error
	status   int
	code     string
	message  string
}

// Checked in order; the first sentinel found in the chain wins.
var errorMappings = []errorMapping{
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found", "The requested resource was not found"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	{apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", ""},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication is required"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden", "You don't have permission to access this resource"},
	{apperrors.ErrUnavailable, http.StatusServiceUnavailable, "unavailable", "The service is temporarily unavailable"},
}

var internalError = errorMapping{
	status:  http.StatusInternalServerError,
	code:    "internal_error",
	message: "An internal error occurred",
}

func classify(err error) (int, ErrorResponse) {
	mapping := internalError
	for _, m := range errorMappings {
		if apperrors.Is(err, m.sentinel) {
			mapping = m
			break
		}
	}

	message := mapping.message
	if message == "" {
		message = err.Error()
	}
	return mapping.status, ErrorResponse{Error: mapping.code, Message: message}
}

// HandleErrorGin writes the response for a use case error. Errors outside the
// sentinel set become a generic 500 and their text only reaches the log.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	status, body := classify(err)
	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", status),
			slog.String("error_code", body.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(status, body)
}

// HandleBadRequestGin answers 400 for a body that could not be decoded.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusBadRequest, "bad_request", err, logger)
}

// HandleValidationErrorGin answers 422 with the field messages of a validation error.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusUnprocessableEntity, "validation_error", err, logger)
}

func writeClientError(c *gin.Context, status int, code string, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("rejected request", slog.String("error_code", code), slog.Any("error", err))
	}
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}
