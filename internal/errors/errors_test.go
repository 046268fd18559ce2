package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("New creates error correctly", func(t *testing.T) {
		err := New(ErrorTypeValidation, "path is required", http.StatusBadRequest)

		assert.Equal(t, ErrorTypeValidation, err.Type)
		assert.Equal(t, "path is required", err.Message)
		assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
		assert.Equal(t, "VALIDATION_ERROR: path is required", err.Error())
	})

	t.Run("Wrap keeps the cause", func(t *testing.T) {
		cause := errors.New("ffprobe exited 1")
		err := Wrap(cause, ErrorTypeInternal, "probe failed", http.StatusInternalServerError)

		assert.Equal(t, cause, err.Unwrap())
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "ffprobe exited 1")
	})

	t.Run("WithDetails and WithCode", func(t *testing.T) {
		err := NewValidationError("bad").WithCode("E_PATH").WithDetails(map[string]interface{}{"field": "path"})

		assert.Equal(t, "E_PATH", err.Code)
		assert.Equal(t, "path", err.Details["field"])
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("entry"), ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("busy"), ErrorTypeConflict, http.StatusConflict},
		{"unsupported", NewUnsupportedMediaError("/tmp/a.txt"), ErrorTypeUnsupported, http.StatusUnsupportedMediaType},
		{"internal", NewInternalError("boom"), ErrorTypeInternal, http.StatusInternalServerError},
		{"wrapped internal", WrapInternalError(errors.New("x"), "boom"), ErrorTypeInternal, http.StatusInternalServerError},
		{"timeout", NewTimeoutError("slow"), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"rate limit", NewRateLimitError("slow down"), ErrorTypeRateLimit, http.StatusTooManyRequests},
		{"service down", NewServiceDownError("redis"), ErrorTypeServiceDown, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
		})
	}

	assert.Equal(t, "entry not found", NewNotFoundError("entry").Message)
	assert.Equal(t, "/tmp/a.txt", NewUnsupportedMediaError("/tmp/a.txt").Details["path"])
}

func TestGetAppError(t *testing.T) {
	appErr := NewNotFoundError("entry")
	wrapped := fmt.Errorf("catalog get: %w", appErr)

	got, ok := GetAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, appErr, got)
	assert.True(t, IsAppError(wrapped))

	_, ok = GetAppError(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, IsAppError(nil))
}

func TestFromError(t *testing.T) {
	appErr := NewValidationError("bad")
	assert.Same(t, appErr, FromError(appErr))

	timeout := FromError(fmt.Errorf("probe: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeTimeout, timeout.Type)
	assert.Equal(t, http.StatusGatewayTimeout, timeout.HTTPStatus)

	internal := FromError(errors.New("disk on fire"))
	assert.Equal(t, ErrorTypeInternal, internal.Type)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
}
