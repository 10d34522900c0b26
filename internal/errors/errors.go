// Package errors defines the service error taxonomy shared by all handlers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	CodeUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeUpstream         ErrorCode = "UPSTREAM_FAILURE"
)

// ServiceError is an error with an HTTP status and a client-safe message.
// The wrapped cause, if any, is for logs only and is never serialized.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]any
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is/As.
func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a key/value pair for logging and returns the error.
func (e *ServiceError) WithDetails(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Unauthenticated indicates a missing or invalid session.
func Unauthenticated(message string) *ServiceError {
	if message == "" {
		message = "authentication required"
	}
	return &ServiceError{Code: CodeUnauthenticated, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// Forbidden indicates the caller's role or membership does not permit the action.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "insufficient permissions"
	}
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// Validation indicates malformed or missing input.
func Validation(message string) *ServiceError {
	return &ServiceError{Code: CodeValidation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// InvalidOperation indicates a well-formed request the rules forbid,
// such as an admin deleting their own account.
func InvalidOperation(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidOperation, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NotFound indicates the target entity does not exist or is not visible.
func NotFound(entity string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: entity + " not found", HTTPStatus: http.StatusNotFound}
}

// Upstream wraps a failure from Supabase (database, auth, or storage).
// The cause is logged; clients only ever see the generic message.
func Upstream(message string, cause error) *ServiceError {
	if message == "" {
		message = "internal server error"
	}
	return &ServiceError{Code: CodeUpstream, Message: message, HTTPStatus: http.StatusInternalServerError, cause: cause}
}

// GetServiceError extracts a *ServiceError from err, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsNotFound reports whether err is a not-found service error.
func IsNotFound(err error) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == CodeNotFound
}
