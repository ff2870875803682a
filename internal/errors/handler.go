package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"pricecomp/internal/dataprocessing"
	"pricecomp/internal/exporter"
	"pricecomp/internal/session"
	"pricecomp/internal/validation"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
	TypeUnsupportedFile = "/errors/unsupported-media-type"
)

// Domain-specific error types
const (
	TypeInputUnparsable = "/errors/input/unparsable"
	TypeMissingColumns  = "/errors/input/missing-columns"
	TypeNoMatchingRows  = "/errors/pricecomp/no-matching-rows"
	TypeExportFailed    = "/errors/pricecomp/export-failed"
	TypeRunInProgress   = "/errors/pricecomp/run-in-progress"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("problem_type", problem.Type),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := r.URL.Path

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The run took too long to process and was cancelled",
			instance,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return h.apiErrorToProblem(ErrPayloadTooLarge, r).WithExtension("limit_bytes", tooLarge.Limit)
	}

	var formatErr *dataprocessing.FormatError
	var schemaErr *dataprocessing.SchemaError
	var exportErr *exporter.ExportError

	switch {
	case errors.Is(err, session.ErrRunInProgress):
		return NewProblemDetails(
			http.StatusConflict,
			TypeRunInProgress,
			"Run In Progress",
			"A price comp run is already executing for this session. Wait for it to finish.",
			instance,
		)

	case errors.Is(err, validation.ErrUnsupportedFile):
		return NewProblemDetails(
			http.StatusUnsupportedMediaType,
			TypeUnsupportedFile,
			"Unsupported File",
			err.Error(),
			instance,
		).WithExtension("accepted_extensions", validation.AcceptedExtensions)

	case errors.Is(err, validation.ErrEmptyFile):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Empty File",
			err.Error(),
			instance,
		)

	case errors.As(err, &formatErr):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeInputUnparsable,
			"Unreadable Input",
			formatErr.Error(),
			instance,
		).WithExtension("filename", formatErr.Filename)

	case errors.As(err, &schemaErr):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeMissingColumns,
			"Missing Columns",
			schemaErr.Error(),
			instance,
		).WithExtension("missing_columns", schemaErr.Missing).
			WithExtension("stage", schemaErr.Stage)

	case errors.Is(err, dataprocessing.ErrNoMatchingRows):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeNoMatchingRows,
			"No Matching Rows",
			"No rows with Price Comp Bucket 'NC' or 'NCO' were found. Nothing was exported.",
			instance,
		)

	case errors.As(err, &exportErr):
		problem := NewProblemDetails(
			http.StatusInternalServerError,
			TypeExportFailed,
			"Export Failed",
			exportErr.Error(),
			instance,
		).WithExtension("file", exportErr.File)
		if exportErr.PartnerID != "" {
			problem.WithExtension("partner_id", exportErr.PartnerID)
		}
		return problem

	default:
		return h.apiErrorToProblem(ErrInternalServer, r)
	}
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		problemType = TypeValidation
	case http.StatusNotFound:
		problemType = TypeNotFound
	case http.StatusConflict:
		problemType = TypeConflict
	case http.StatusRequestEntityTooLarge:
		problemType = TypePayloadTooLarge
	case http.StatusUnsupportedMediaType:
		problemType = TypeUnsupportedFile
	case http.StatusTooManyRequests:
		problemType = TypeRateLimit
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := h.apiErrorToProblem(ErrInternalServer, r).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := h.apiErrorToProblem(ErrNotFound, r).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
