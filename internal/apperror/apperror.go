package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrAuthRequired = errors.New("authentication required")
	ErrBackend      = errors.New("backend error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

// AuthRequired returns an AppError indicating the request has no resolved
// user identity. HTTP handlers map this to 401 Unauthorized.
func AuthRequired(message string) *AppError {
	return &AppError{
		Err:     ErrAuthRequired,
		Message: message,
	}
}

// Backend wraps a storage failure with an opaque cause.
// The cause stays in the error chain for logging; the client only ever
// sees the message. HTTP handlers map this to 502 Bad Gateway.
func Backend(message string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrBackend, cause),
		Message: message,
	}
}
