package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined error types for common scenarios
var (
	// 400 Bad Request
	ErrInvalidRequest = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrMissingFile    = New(http.StatusBadRequest, "MISSING_FILE", "A listings file is required in the \"file\" form field")

	// 404 Not Found
	ErrNotFound       = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrNoRunInSession = New(http.StatusNotFound, "NO_RUN", "No price comp run has completed in this session")

	// 409 Conflict
	ErrRunInProgress = New(http.StatusConflict, "RUN_IN_PROGRESS", "A price comp run is already in progress for this session")

	// 413 Payload Too Large
	ErrPayloadTooLarge = New(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "The uploaded file exceeds the maximum allowed size")

	// 415 Unsupported Media Type
	ErrUnsupportedFile = New(http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE", "Only .csv and .xlsx files are accepted")

	// 429 Too Many Requests
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")

	// 500 Internal Server Error
	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format", err.Error())
}

// UnsupportedFile creates an unsupported file error naming the rejected file
func UnsupportedFile(filename string) *APIError {
	return NewWithDetails(http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE",
		fmt.Sprintf("%q is not a .csv, .xlsx or .xlsm file", filename), filename)
}
