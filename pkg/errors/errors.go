// Package errors defines custom error types and error handling utilities for StatusService.
// Every error that can reach an HTTP client carries a stable code and an HTTP status.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable, machine readable error identifier
type ErrorCode string

const (
	ErrCodeInvalidRequest    ErrorCode = "invalid_request"
	ErrCodeUnauthorized      ErrorCode = "unauthorized"
	ErrCodeNotFound          ErrorCode = "not_found"
	ErrCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"
	ErrCodeIPBlocked         ErrorCode = "ip_blocked"
	ErrCodePersistence       ErrorCode = "persistence_error"
	ErrCodeUnavailable       ErrorCode = "service_unavailable"
	ErrCodeInternal          ErrorCode = "internal_error"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// ServiceError represents a structured error with additional metadata
type ServiceError interface {
	error

	// Code returns the error code
	Code() ErrorCode

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) ServiceError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) ServiceError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

type baseError struct {
	code       ErrorCode
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *baseError) Code() ErrorCode { return e.code }

func (e *baseError) HTTPStatus() int { return e.httpStatus }

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) WithCause(cause error) ServiceError {
	e.cause = cause
	return e
}

func (e *baseError) WithMetadata(key string, value interface{}) ServiceError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// NewError creates a new ServiceError with the specified parameters
func NewError(code ErrorCode, httpStatus int, message string) ServiceError {
	return &baseError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
	}
}

// ================================================================================
// Predefined Error Constructors
// ================================================================================

// ErrInvalidRequest reports a malformed or missing request parameter
func ErrInvalidRequest(message string) ServiceError {
	return NewError(ErrCodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrUnauthorized reports a missing or invalid admin credential
func ErrUnauthorized(message string) ServiceError {
	return NewError(ErrCodeUnauthorized, http.StatusUnauthorized, message)
}

// ErrNotFound reports an absent resource
func ErrNotFound(message string) ServiceError {
	return NewError(ErrCodeNotFound, http.StatusNotFound, message)
}

// ErrPersistence reports a failed write to durable state
func ErrPersistence(message string, cause error) ServiceError {
	return NewError(ErrCodePersistence, http.StatusInternalServerError, message).WithCause(cause)
}

// ErrInternal reports an unexpected failure
func ErrInternal(message string) ServiceError {
	return NewError(ErrCodeInternal, http.StatusInternalServerError, message)
}

// ErrClosed is returned by components that no longer accept work
var ErrClosed = NewError(ErrCodeUnavailable, http.StatusServiceUnavailable, "component is closed")

// ================================================================================
// Helpers
// ================================================================================

// Wrap wraps a generic error into a ServiceError
func Wrap(err error, code ErrorCode, message string) ServiceError {
	status := http.StatusInternalServerError
	switch code {
	case ErrCodeInvalidRequest:
		status = http.StatusBadRequest
	case ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case ErrCodeNotFound:
		status = http.StatusNotFound
	case ErrCodeRateLimitExceeded, ErrCodeIPBlocked:
		status = http.StatusTooManyRequests
	case ErrCodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	return NewError(code, status, message).WithCause(err)
}

// AsServiceError finds the first ServiceError in err's chain
func AsServiceError(err error) (ServiceError, bool) {
	var svcErr ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// IsPersistenceError checks if an error comes from a failed durable write
func IsPersistenceError(err error) bool {
	if svcErr, ok := AsServiceError(err); ok {
		return svcErr.Code() == ErrCodePersistence
	}
	return false
}

// ErrorResponse is the JSON body sent to HTTP clients
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ToErrorResponse converts any error to a client safe body. Non service
// errors are reported as a generic internal error.
func ToErrorResponse(err error) (int, *ErrorResponse) {
	if svcErr, ok := AsServiceError(err); ok {
		msg := svcErr.Error()
		if svcErr.HTTPStatus() >= http.StatusInternalServerError {
			msg = "Internal server error"
		} else if be, ok := svcErr.(*baseError); ok {
			msg = be.message
		}
		return svcErr.HTTPStatus(), &ErrorResponse{Error: msg, Code: string(svcErr.Code())}
	}
	return http.StatusInternalServerError, &ErrorResponse{Error: "Internal server error", Code: string(ErrCodeInternal)}
}
