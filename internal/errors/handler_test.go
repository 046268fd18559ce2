package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietHandler() *ErrorHandler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewErrorHandler(logger)
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	return response
}

func TestHandleError(t *testing.T) {
	handler := quietHandler()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   ErrorType
	}{
		{"validation", NewValidationError("path is required"), http.StatusBadRequest, ErrorTypeValidation},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, ErrorTypeInternal},
		{"missing entry", NewNotFoundError("library entry"), http.StatusNotFound, ErrorTypeNotFound},
		{"unsupported media", NewUnsupportedMediaError("/videos/notes.txt"), http.StatusUnsupportedMediaType, ErrorTypeUnsupported},
		{"scan running", NewConflictError("a library scan is already running"), http.StatusConflict, ErrorTypeConflict},
		{"wrapped deadline", fmt.Errorf("frame extraction: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, ErrorTypeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", nil)
			req.Header.Set("X-Request-ID", "req-42")
			rr := httptest.NewRecorder()

			handler.HandleError(rr, req, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			response := decodeResponse(t, rr)
			assert.Equal(t, tt.wantType, response.Error.Type)
			assert.NotEmpty(t, response.Error.Message)
			assert.Equal(t, "req-42", response.TraceID)
		})
	}
}

func TestHandleErrorHidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	quietHandler().HandleError(rr, httptest.NewRequest(http.MethodGet, "/", nil),
		errors.New("open /secret/path: permission denied"))

	assert.NotContains(t, rr.Body.String(), "/secret/path")
}

func TestHandleErrorRateLimitSetsRetryAfter(t *testing.T) {
	rr := httptest.NewRecorder()
	quietHandler().HandleError(rr, httptest.NewRequest(http.MethodGet, "/", nil), NewRateLimitError("slow down"))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
}

func TestHandleErrorClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/library/scan", nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	quietHandler().HandleError(rr, req, fmt.Errorf("scan: %w", context.Canceled))

	assert.Empty(t, rr.Body.String())
}

func TestHandleErrorLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.JSONFormatter{})
	handler := NewErrorHandler(logger)

	handler.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), NewNotFoundError("endpoint"))
	assert.Empty(t, buf.String(), "404s are logged at debug")

	handler.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), NewValidationError("bad"))
	assert.Contains(t, buf.String(), `"level":"warning"`)

	buf.Reset()
	handler.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), NewServiceDownError("library"))
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestHandleNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	quietHandler().HandleNotFound(rr, httptest.NewRequest(http.MethodGet, "/api/v2/nothing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	response := decodeResponse(t, rr)
	assert.Equal(t, ErrorTypeNotFound, response.Error.Type)
	assert.Equal(t, "/api/v2/nothing", response.Error.Details["path"])
}

func TestHandleMethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	quietHandler().HandleMethodNotAllowed(rr, httptest.NewRequest(http.MethodPut, "/version", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	response := decodeResponse(t, rr)
	assert.Equal(t, ErrorTypeValidation, response.Error.Type)
	assert.Equal(t, "PUT", response.Error.Details["method"])
}

func TestMiddlewareRecoversPanics(t *testing.T) {
	protected := quietHandler().Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("decoder exploded")
	}))

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		protected.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	response := decodeResponse(t, rr)
	assert.Equal(t, ErrorTypeInternal, response.Error.Type)
	assert.NotContains(t, rr.Body.String(), "decoder exploded")
}

func TestMiddlewareRepanicsAbort(t *testing.T) {
	protected := quietHandler().Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		protected.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
