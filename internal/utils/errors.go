package utils

import (
	"errors"
	"fmt"
)

// AppError carries a machine-readable code plus the identifiers the caller
// needs to render a message. The core never formats user-facing strings.
type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

func (appErr *AppError) Unwrap() error {
	return appErr.Origin
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrInvalidInput = "INVALID_INPUT"

	// Domain-rule errors
	ErrStateConflict = "STATE_CONFLICT" // entity lifecycle forbids the operation

	// Concurrency errors, retryable within the same logical operation
	ErrVersionConflict  = "VERSION_CONFLICT" // optimistic token mismatch on save
	ErrDuplicateVote    = "DUPLICATE_VOTE"   // unique-constraint race on vote insert
	ErrRetriesExhausted = "RETRIES_EXHAUSTED"

	// Authentication/Authorization errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrForbidden    = "FORBIDDEN" // collaborator vetoed the action (ban, membership)
	ErrInvalidToken = "INVALID_TOKEN"

	// User-specific errors
	ErrUserNotFound       = "USER_NOT_FOUND"
	ErrUserAlreadyExists  = "USER_ALREADY_EXISTS"
	ErrInvalidCredentials = "INVALID_CREDENTIALS"

	// Actor communication errors
	ErrActorTimeout = "ACTOR_TIMEOUT"

	ErrDatabase = "DATABASE_ERROR"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

// Specific error creators for common cases
func NewNotFoundError(what string, id string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: what + " not found: " + id,
	}
}

func NewValidationError(reason string) *AppError {
	return &AppError{
		Code:    ErrInvalidInput,
		Message: reason,
	}
}

func NewStateConflictError(reason string) *AppError {
	return &AppError{
		Code:    ErrStateConflict,
		Message: reason,
	}
}

func NewForbiddenError(reason string) *AppError {
	return &AppError{
		Code:    ErrForbidden,
		Message: "Forbidden: " + reason,
	}
}

func NewUnauthorizedError(reason string) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "Unauthorized: " + reason,
	}
}

func NewVersionConflictError(ref fmt.Stringer) *AppError {
	return &AppError{
		Code:    ErrVersionConflict,
		Message: "Version token mismatch on " + ref.String(),
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryableConflict reports whether the error is a concurrency conflict
// that may be retried with the decision re-evaluated against fresh state.
func IsRetryableConflict(err error) bool {
	return IsErrorCode(err, ErrVersionConflict) || IsErrorCode(err, ErrDuplicateVote)
}

// Helper method to check if an error is related to authentication
func IsAuthError(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == ErrUnauthorized ||
			appErr.Code == ErrForbidden ||
			appErr.Code == ErrInvalidToken
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound, ErrUserNotFound:
		return 404 // http.StatusNotFound
	case ErrInvalidInput:
		return 400 // http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken, ErrInvalidCredentials:
		return 401 // http.StatusUnauthorized
	case ErrForbidden:
		return 403 // http.StatusForbidden
	case ErrStateConflict, ErrUserAlreadyExists, ErrDuplicateVote, ErrVersionConflict:
		return 409 // http.StatusConflict
	case ErrRetriesExhausted:
		return 503 // http.StatusServiceUnavailable
	case ErrDatabase, ErrActorTimeout:
		return 500 // http.StatusInternalServerError
	default:
		return 500 // http.StatusInternalServerError for unknown errors
	}
}
