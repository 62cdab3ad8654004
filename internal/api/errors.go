// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/sat-practice/backend/internal/models"
	"github.com/sat-practice/backend/internal/parser"
	"github.com/sat-practice/backend/internal/store"
)

// APIError represents a structured API error response
type APIError struct {
	Status   int                   `json:"-"`
	Code     string                `json:"code"`
	Message  string                `json:"message"`
	Details  string                `json:"details,omitempty"`
	Warnings []models.ParseWarning `json:"warnings,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ShowErrorDetails controls whether unexpected errors expose their message.
var ShowErrorDetails = true

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewUnprocessableError creates a 422 error carrying the parse warnings that
// blocked the request.
func NewUnprocessableError(message string, warnings []models.ParseWarning) *APIError {
	return &APIError{
		Status:   http.StatusUnprocessableEntity,
		Code:     "UNPROCESSABLE",
		Message:  message,
		Warnings: warnings,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// newParseError maps a dialect chain failure onto an API error.
func newParseError(err error) *APIError {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		apiErr := NewBadRequestError("could not parse test file", err)
		if errors.Is(err, parser.ErrNoDialect) {
			apiErr.Code = "UNKNOWN_FORMAT"
		}
		if errors.Is(err, parser.ErrInvalidEncoding) {
			apiErr.Code = "INVALID_ENCODING"
		}
		return apiErr
	}
	return NewInternalError("parse failed", err)
}

// storeError maps a store failure onto an API error.
func storeError(resource, id string, err error) *APIError {
	if errors.Is(err, store.ErrNotFound) {
		return NewNotFoundError(resource, id)
	}
	return NewInternalError(fmt.Sprintf("failed to load %s", resource), err)
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
		if ShowErrorDetails {
			apiErr.Details = err.Error()
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		log.Errorf("[API] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if err := c.JSON(apiErr.Status, apiErr); err != nil {
		log.Errorf("[API] failed to write error response: %v", err)
	}
}

// RespondWithError is a helper to respond with an APIError
func RespondWithError(c echo.Context, err *APIError) error {
	return c.JSON(err.Status, err)
}
