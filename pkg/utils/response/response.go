// Package response provides the unified API response envelope.
// Every HTTP response, success or failure, is serialized in this format so
// callers can rely on the success flag and timestamp being present.
package response

import (
	"net/http"
	"time"

	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
)

// Response is the unified API response envelope.
type Response struct {
	// Success reports whether the request was handled successfully.
	Success bool `json:"success"`

	// Code is the business error code (0 = success).
	Code int `json:"code,omitempty"`

	// Message is a human-readable message for successful requests.
	Message string `json:"message,omitempty"`

	// Error is the error message for failed requests.
	Error string `json:"error,omitempty"`

	// Data contains the response payload (nil for errors).
	Data interface{} `json:"data,omitempty"`

	// ExecutionTime is the elapsed backend execution time in milliseconds.
	// Not omitted when zero: sub-millisecond operations legitimately report 0.
	ExecutionTime int64 `json:"executionTime"`

	// Diagnostics carries operation metadata for caller debugging.
	Diagnostics interface{} `json:"diagnostics,omitempty"`

	// Timestamp is the response time in RFC3339 format.
	Timestamp string `json:"timestamp"`
}

// now returns the envelope timestamp for the current instant.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Success creates a successful response with data.
func Success(data interface{}) *Response {
	return &Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	}
}

// SuccessWithMessage creates a successful response with a message instead
// of a payload.
func SuccessWithMessage(message string) *Response {
	return &Response{
		Success:   true,
		Message:   message,
		Timestamp: now(),
	}
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Success:   false,
		Code:      e.Code,
		Error:     e.Message,
		Timestamp: now(),
	}
}

// WithExecutionTime records the elapsed backend time on the response.
func (r *Response) WithExecutionTime(d time.Duration) *Response {
	r.ExecutionTime = d.Milliseconds()
	return r
}

// WithDiagnostics attaches operation metadata to the response.
func (r *Response) WithDiagnostics(diag interface{}) *Response {
	r.Diagnostics = diag
	return r
}

// HTTPStatus returns the appropriate HTTP status code for this response.
// It looks up the registered errno to get the correct HTTP status.
func (r *Response) HTTPStatus() int {
	if r.Success {
		return http.StatusOK
	}

	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}

	// Fallback: determine by category from error code.
	switch errors.GetCategory(r.Code) {
	case errors.CategoryRequest:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryResource:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
