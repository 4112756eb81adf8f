package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors used to classify failures at the transport boundary.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)

// AppError carries a sentinel classification plus the message shown to callers.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports a caller mistake. Message is returned verbatim in the response body.
func NewValidationError(message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message}
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError reports a concurrent modification.
func NewConflictError(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

// NewUnavailableError reports a dependency that is not configured or not reachable.
func NewUnavailableError(message string) *AppError {
	return &AppError{Err: ErrUnavailable, Message: message}
}

// IsValidation reports whether err is a caller mistake.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
