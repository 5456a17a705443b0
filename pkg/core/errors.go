package core

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrModelNotFound is returned when a model name is not registered
	ErrModelNotFound = errors.New("model not found")

	// ErrNoModelAvailable is returned when no registered model can serve a modality
	ErrNoModelAvailable = errors.New("no model available for modality")

	// ErrInvalidDimension is returned when a dimension is not positive
	ErrInvalidDimension = errors.New("invalid vector dimension")

	// ErrEmptyVector is returned when an operation receives an empty vector
	ErrEmptyVector = errors.New("empty vector")

	// ErrEmptyInput is returned when an embedding or clustering input is empty
	ErrEmptyInput = errors.New("empty input")

	// ErrEncoderNotConfigured is returned when text embedding is requested
	// but no text encoder was injected
	ErrEncoderNotConfigured = errors.New("text encoder not configured")

	// ErrStoreClosed is returned when using a closed snapshot store
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMismatchedWeights is returned when fusion inputs and weights differ in length
	ErrMismatchedWeights = errors.New("embeddings and weights length mismatch")
)

// Error wraps errors with operation context
type Error struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("modalvec: %v", e.Err)
	}
	return fmt.Sprintf("modalvec: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with operation context
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
