package models

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify failures with errors.Is against these.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
	// ErrTransient means the store could not commit; nothing was applied.
	ErrTransient = errors.New("store unavailable")
)

// AppError carries a kind, a caller-facing message and the underlying cause.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func NewNotFoundError(resource string, id string) *AppError {
	return &AppError{Kind: ErrNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: ErrConflict, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: ErrForbidden, Message: message}
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: ErrValidation, Message: message}
}

func NewTransientError(err error) *AppError {
	return &AppError{Kind: ErrTransient, Message: "transaction could not be committed", Err: err}
}
