// Package shared provides domain types used across all tenant-scoped entities.
package shared

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrBadRequest    = errors.New("bad request")
	ErrConflict      = errors.New("conflict")
	ErrInternal      = errors.New("internal error")
)

// Automation-core errors. These drive retry and propagation decisions in the
// scheduler, queue workers and approval state machine.
var (
	// ErrAlreadyProcessed is returned when a decision targets an approval
	// whose status is no longer pending. The conditional UPDATE missed, so
	// another actor won; the caller must not retry.
	ErrAlreadyProcessed = errors.New("already processed")

	// ErrAlreadyRunning is returned by the scheduler when a manual trigger
	// targets a task that is mid-run.
	ErrAlreadyRunning = errors.New("already running")

	// ErrExternalUnavailable marks a downstream dependency failure. Queue
	// jobs failing with it are retried per the queue's backoff policy.
	ErrExternalUnavailable = errors.New("external dependency unavailable")

	// ErrExhaustedRetries marks a job that failed on its final attempt.
	ErrExhaustedRetries = errors.New("retries exhausted")
)

// DomainError carries a stable machine-readable code alongside a message.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAlreadyProcessed checks if the error is an approval CAS miss.
func IsAlreadyProcessed(err error) bool {
	return errors.Is(err, ErrAlreadyProcessed)
}

// IsAlreadyRunning checks if the error is a scheduler run-guard rejection.
func IsAlreadyRunning(err error) bool {
	return errors.Is(err, ErrAlreadyRunning)
}

// IsRetryable reports whether a job failure should be retried by the queue.
// Malformed payloads and CAS misses are terminal; downstream outages are not.
func IsRetryable(err error) bool {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrAlreadyProcessed),
		errors.Is(err, ErrNotFound):
		return false
	}
	return true
}
