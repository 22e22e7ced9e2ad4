// Package apierror provides standardized API error responses and the mapping
// from domain errors to HTTP status codes.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// Code represents a machine-readable error code.
type Code string

// Standard error codes.
const (
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeAlreadyProcessed  Code = "ALREADY_PROCESSED"
	CodeAlreadyRunning    Code = "ALREADY_RUNNING"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeInternalError     Code = "INTERNAL_ERROR"
	CodeDependencyFailure Code = "DEPENDENCY_FAILURE"
)

// Error represents a standardized API error.
type Error struct {
	// HTTP status code, not serialized.
	Status int `json:"-"`

	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`

	// Internal error, not exposed to the client.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Response is the wire shape of an error.
type Response struct {
	Error     string `json:"error"`
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes the error as JSON to the response writer.
func (e *Error) WriteJSON(w http.ResponseWriter, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(Response{
		Error:     string(e.Code),
		Code:      e.Code,
		Message:   e.Message,
		Details:   e.Details,
		RequestID: requestID,
	})
}

// New creates a new API error.
func New(status int, code Code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *Error {
	message := "resource not found"
	if resource != "" {
		message = resource + " not found"
	}
	return New(http.StatusNotFound, CodeNotFound, message)
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// FromDomain maps a domain error onto an API error. Approval CAS misses and
// run-guard rejections map to 409 with distinct codes so clients can tell a
// lost race from a genuine conflict.
func FromDomain(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	message := err.Error()
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	switch {
	case errors.Is(err, shared.ErrAlreadyProcessed):
		return &Error{Status: http.StatusConflict, Code: CodeAlreadyProcessed, Message: "decision already recorded", Err: err}
	case errors.Is(err, shared.ErrAlreadyRunning):
		return &Error{Status: http.StatusConflict, Code: CodeAlreadyRunning, Message: "task is already running", Err: err}
	case errors.Is(err, shared.ErrNotFound):
		return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: message, Err: err}
	case errors.Is(err, shared.ErrAlreadyExists), errors.Is(err, shared.ErrConflict):
		return &Error{Status: http.StatusConflict, Code: CodeConflict, Message: message, Err: err}
	case errors.Is(err, shared.ErrValidation):
		return &Error{Status: http.StatusUnprocessableEntity, Code: CodeValidationFailed, Message: message, Err: err}
	case errors.Is(err, shared.ErrBadRequest):
		return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: message, Err: err}
	case errors.Is(err, shared.ErrExternalUnavailable):
		return &Error{Status: http.StatusBadGateway, Code: CodeDependencyFailure, Message: "downstream dependency unavailable", Err: err}
	}
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternalError, Message: "internal server error", Err: err}
}
