// Package dto provides Data Transfer Objects for HTTP request/response handling.
package dto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

// ErrorResponse is the standard error envelope for all error responses.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	TraceID string      `json:"traceId,omitempty"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	// Code is a machine-readable error code (e.g., "NOT_FOUND", "VALIDATION_ERROR").
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Details provides field-level messages for validation errors.
	Details map[string]string `json:"details,omitempty"`
}

// Error codes for machine-readable error identification.
const (
	ErrorCodeNotFound    = "NOT_FOUND"
	ErrorCodeValidation  = "VALIDATION_ERROR"
	ErrorCodeUnavailable = "SERVICE_UNAVAILABLE"
	ErrorCodeInternal    = "INTERNAL_ERROR"
	ErrorCodeTimeout     = "TIMEOUT"
	ErrorCodeBadRequest  = "BAD_REQUEST"
)

// NewErrorResponse creates a new error response with the given code and message.
func NewErrorResponse(code, message string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithDetails creates an error response with additional details.
func NewErrorResponseWithDetails(code, message string, details map[string]string) *ErrorResponse {
	resp := NewErrorResponse(code, message)
	resp.Error.Details = details

	return resp
}

// WithTraceID adds a trace ID to the error response.
func (e *ErrorResponse) WithTraceID(traceID string) *ErrorResponse {
	e.TraceID = traceID
	return e
}

// HTTPStatusFromCode maps error codes to HTTP status codes.
func HTTPStatusFromCode(code string) int {
	switch code {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeValidation, ErrorCodeBadRequest:
		return http.StatusBadRequest
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// MapDomainError maps a domain error to an HTTP status code and error response.
// Unknown errors are mapped to 500 Internal Server Error with a generic message.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound, NewErrorResponse(ErrorCodeNotFound, err.Error())

	case domain.IsValidation(err):
		resp := NewErrorResponse(ErrorCodeValidation, err.Error())

		var invalidDirection *domain.InvalidDirectionError

		var validationErr *domain.ValidationError

		switch {
		case errors.As(err, &invalidDirection):
			resp.Error.Details = map[string]string{"direction": `must be "in" or "out"`}
		case errors.As(err, &validationErr) && validationErr.Field != "":
			resp.Error.Details = map[string]string{validationErr.Field: validationErr.Message}
		}

		return http.StatusBadRequest, resp

	case domain.IsUnavailable(err):
		return http.StatusServiceUnavailable, NewErrorResponse(ErrorCodeUnavailable, err.Error())

	default:
		// Unknown errors get a generic message to avoid leaking internals
		return http.StatusInternalServerError, NewErrorResponse(ErrorCodeInternal, "an internal error occurred")
	}
}

// GetTraceID returns the active trace ID for the request, or "".
func GetTraceID(c *gin.Context) string {
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return ""
}

// HandleError writes the mapped error response for err. Internal errors
// are logged with full detail since the client only sees a generic message.
func HandleError(c *gin.Context, err error) {
	status, resp := MapDomainError(err)
	resp.TraceID = GetTraceID(c)

	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "internal error",
			slog.Any("error", err),
			slog.String("trace_id", resp.TraceID),
		)
	}

	c.JSON(status, resp)
}

// RespondWithErrorCode writes an error response with a specific error code.
// Use this for adapter-level errors that don't originate from the domain.
func RespondWithErrorCode(c *gin.Context, code, message string) {
	c.JSON(HTTPStatusFromCode(code), NewErrorResponse(code, message).WithTraceID(GetTraceID(c)))
}

// RespondWithValidationErrors writes a 400 response with field-level validation errors.
func RespondWithValidationErrors(c *gin.Context, fieldErrors map[string]string) {
	c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails(
		ErrorCodeValidation,
		"request validation failed",
		fieldErrors,
	).WithTraceID(GetTraceID(c)))
}

// AbortWithErrorCode aborts the request chain with a specific error code.
func AbortWithErrorCode(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(HTTPStatusFromCode(code), NewErrorResponse(code, message).WithTraceID(GetTraceID(c)))
}

// HandleBindError responds to a BindAndValidate failure: field details for
// validation failures, BAD_REQUEST for malformed input.
func HandleBindError(c *gin.Context, err error) {
	if IsValidationError(err) {
		RespondWithValidationErrors(c, ValidationErrors(err))
		return
	}

	RespondWithErrorCode(c, ErrorCodeBadRequest, "malformed request")
}
