package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDatabase      = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NotFoundError(message string) error {
	return NewAppError("NOT_FOUND", message, ErrNotFound)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return NewAppError("INVALID_ARGUMENT", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// DatabaseError marks a failure of the store itself, as opposed to a missing
// or invalid record. The driver error stays reachable through errors.As.
func DatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewAppError("DB_ERROR", op, fmt.Errorf("%w: %w", ErrDatabase, err))
}
