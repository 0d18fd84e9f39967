package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies execution errors for recovery decisions.
type ErrorKind string

const (
	ErrorKindValidation     ErrorKind = "validation"
	ErrorKindExecution      ErrorKind = "execution"
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindRetryExhausted ErrorKind = "retry_exhausted"
	ErrorKindCancelled      ErrorKind = "cancelled"
)

// ExecutionError is the engine's error type. Validation and retry-exhausted
// errors are never recoverable; execution and timeout errors are retried
// within the step's budget.
type ExecutionError struct {
	Message     string         `json:"message"`
	Kind        ErrorKind      `json:"kind"`
	Details     map[string]any `json:"details,omitempty"`
	NodeID      string         `json:"node_id,omitempty"`
	Recoverable bool           `json:"recoverable"`
	Err         error          `json:"-"`
}

func (e *ExecutionError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s error at node %s: %s", e.Kind, e.NodeID, e.Message)
	}

	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// WithDetail attaches one key to the error's details map.
func (e *ExecutionError) WithDetail(key string, value any) *ExecutionError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}

	e.Details[key] = value

	return e
}

func NewValidationError(nodeID, message string) *ExecutionError {
	return &ExecutionError{
		Message:     message,
		Kind:        ErrorKindValidation,
		NodeID:      nodeID,
		Recoverable: false,
	}
}

func NewExecutionError(nodeID string, err error) *ExecutionError {
	return &ExecutionError{
		Message:     err.Error(),
		Kind:        ErrorKindExecution,
		NodeID:      nodeID,
		Recoverable: true,
		Err:         err,
	}
}

func NewTimeoutError(nodeID, message string) *ExecutionError {
	return &ExecutionError{
		Message:     message,
		Kind:        ErrorKindTimeout,
		NodeID:      nodeID,
		Recoverable: true,
	}
}

// NewRetryExhaustedError wraps the last underlying error after the retry
// budget is spent.
func NewRetryExhaustedError(nodeID string, attempts int, last error) *ExecutionError {
	e := &ExecutionError{
		Message:     fmt.Sprintf("retries exhausted after %d attempts: %v", attempts, last),
		Kind:        ErrorKindRetryExhausted,
		NodeID:      nodeID,
		Recoverable: false,
		Err:         last,
	}

	return e.WithDetail("attempts", attempts)
}

func NewCancelledError(nodeID string) *ExecutionError {
	return &ExecutionError{
		Message:     "execution cancelled",
		Kind:        ErrorKindCancelled,
		NodeID:      nodeID,
		Recoverable: false,
	}
}

// AsExecutionError extracts an *ExecutionError from an error chain. Plain
// errors are wrapped as recoverable execution errors.
func AsExecutionError(err error, nodeID string) *ExecutionError {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		if execErr.NodeID == "" {
			execErr.NodeID = nodeID
		}

		return execErr
	}

	return NewExecutionError(nodeID, err)
}

// IsRecoverable reports whether an error is eligible for retry.
func IsRecoverable(err error) bool {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Recoverable
	}

	return true
}
