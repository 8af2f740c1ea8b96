package errors

import (
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

// NewAPIError creates a new APIError with the given parameters
func NewAPIError(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// WithDetails returns a copy of e carrying details
func (e *APIError) WithDetails(details interface{}) *APIError {
	c := *e
	c.Details = details
	return &c
}

var (
	ErrInvalidParameter = NewAPIError(http.StatusBadRequest, "INVALID_PARAMETER", "Invalid parameter value")
	ErrNotFound         = NewAPIError(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrPipelineFailed   = NewAPIError(http.StatusUnprocessableEntity, "PIPELINE_FAILED", "Pipeline run failed")
	ErrInternalServer   = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// FromPipelineError maps a pipeline failure onto an API error.
func FromPipelineError(err error) *APIError {
	details := map[string]string{"error": err.Error()}
	if stage := StageOf(err); stage != "" {
		details["stage"] = stage
	}
	switch {
	case IsFormat(err), IsValidation(err):
		return ErrPipelineFailed.WithDetails(details)
	default:
		return ErrInternalServer.WithDetails(details)
	}
}
