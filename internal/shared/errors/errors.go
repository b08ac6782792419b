package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrNotFound            = errors.New("resource not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidInput        = errors.New("invalid input")
	ErrExternalUnavailable = errors.New("external service unavailable")
	ErrConfiguration       = errors.New("configuration error")
	ErrConflict            = errors.New("conflict")
	ErrInternal            = errors.New("internal error")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Retryable  bool              `json:"retryable,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// PermissionDenied creates an authorization failure. Non-retryable; the
// message names the missing permission so the caller knows what was
// refused.
func PermissionDenied(message string) *AppError {
	return &AppError{
		Err:        ErrPermissionDenied,
		Message:    message,
		Code:       "PERMISSION_DENIED",
		HTTPStatus: http.StatusForbidden,
	}
}

// InvalidInput creates a malformed-request error with per-field details.
func InvalidInput(message string, details map[string]string) *AppError {
	return &AppError{
		Err:        ErrInvalidInput,
		Message:    message,
		Code:       "INVALID_INPUT",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// ExternalUnavailable creates a retryable error for an unreachable or
// timed-out boundary collaborator (store, notification dispatcher,
// content service).
func ExternalUnavailable(service string, err error) *AppError {
	return &AppError{
		Err:        ErrExternalUnavailable,
		Message:    fmt.Sprintf("%s temporarily unavailable", service),
		Code:       "EXTERNAL_UNAVAILABLE",
		HTTPStatus: http.StatusServiceUnavailable,
		Retryable:  true,
		Details:    map[string]string{"service": service, "cause": fmt.Sprint(err)},
	}
}

// Configuration creates a fatal configuration error. Never caught and
// worked around: a role missing from a catalog table or an unrecognized
// message type means the catalog itself is inconsistent.
func Configuration(message string) *AppError {
	return &AppError{
		Err:        ErrConfiguration,
		Message:    message,
		Code:       "CONFIGURATION_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Message:    message,
		Code:       "CONFLICT",
		HTTPStatus: http.StatusConflict,
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Wrap wraps an error with additional context. Wrapping an AppError
// keeps its code and status but never mutates it: the same error value
// may be wrapped on several paths.
func Wrap(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		wrapped := *appErr
		wrapped.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return &wrapped
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Is reports whether err matches the given sentinel.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
