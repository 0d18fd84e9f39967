package engine

import "errors"

var (
	// ErrExecutionNotFound is returned when no live or finished execution
	// matches the requested id.
	ErrExecutionNotFound = errors.New("execution not found")
)
