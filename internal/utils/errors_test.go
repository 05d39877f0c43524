package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorCodeUnwraps(t *testing.T) {
	base := NewValidationError("bad input")
	wrapped := fmt.Errorf("handling request: %w", base)

	assert.True(t, IsErrorCode(wrapped, ErrInvalidInput))
	assert.False(t, IsErrorCode(wrapped, ErrNotFound))
	assert.False(t, IsErrorCode(errors.New("plain"), ErrInvalidInput))
	assert.False(t, IsErrorCode(nil, ErrInvalidInput))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	appErr := NewAppError(ErrDatabase, "query failed", cause)

	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Error(), "query failed")
	assert.Contains(t, appErr.Error(), "connection reset")
}

func TestIsRetryableConflict(t *testing.T) {
	assert.True(t, IsRetryableConflict(NewAppError(ErrVersionConflict, "stale", nil)))
	assert.True(t, IsRetryableConflict(NewAppError(ErrDuplicateVote, "race", nil)))
	assert.False(t, IsRetryableConflict(NewAppError(ErrStateConflict, "deleted", nil)))
	assert.False(t, IsRetryableConflict(NewAppError(ErrNotFound, "gone", nil)))
	assert.False(t, IsRetryableConflict(nil))
}

func TestAppErrorToHTTPStatus(t *testing.T) {
	cases := map[string]int{
		ErrNotFound:           http.StatusNotFound,
		ErrUserNotFound:       http.StatusNotFound,
		ErrInvalidInput:       http.StatusBadRequest,
		ErrStateConflict:      http.StatusConflict,
		ErrVersionConflict:    http.StatusConflict,
		ErrDuplicateVote:      http.StatusConflict,
		ErrUserAlreadyExists:  http.StatusConflict,
		ErrRetriesExhausted:   http.StatusServiceUnavailable,
		ErrUnauthorized:       http.StatusUnauthorized,
		ErrInvalidCredentials: http.StatusUnauthorized,
		ErrInvalidToken:       http.StatusUnauthorized,
		ErrForbidden:          http.StatusForbidden,
		ErrDatabase:           http.StatusInternalServerError,
		"SOMETHING_ELSE":      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, AppErrorToHTTPStatus(code), "code %s", code)
	}
}
