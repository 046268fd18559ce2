package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   ErrorDetails `json:"error"`
	TraceID string       `json:"trace_id,omitempty"`
}

// ErrorDetails is the client-visible part of an AppError.
type ErrorDetails struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorHandler turns errors into JSON responses and logs them at a level
// matching their status.
type ErrorHandler struct {
	logger *logrus.Logger
}

func NewErrorHandler(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError writes err as an ErrorResponse. When the client has already
// gone away, as when a long scan is abandoned, nothing is written.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := r.Header.Get("X-Request-ID")

	entry := h.logger.WithFields(logrus.Fields{
		"trace_id": traceID,
		"method":   r.Method,
		"path":     r.URL.Path,
	})

	if stderrors.Is(err, context.Canceled) && r.Context().Err() != nil {
		entry.WithError(err).Debug("Client disconnected before response")
		return
	}

	appErr := FromError(err)
	entry = entry.WithFields(logrus.Fields{
		"error_type": appErr.Type,
		"status":     appErr.HTTPStatus,
		"remote_ip":  r.RemoteAddr,
	})
	entry.Log(levelFor(appErr.HTTPStatus), appErr.Error())

	if appErr.Type == ErrorTypeRateLimit {
		w.Header().Set("Retry-After", "1")
	}

	h.writeJSON(w, appErr.HTTPStatus, ErrorResponse{
		Error: ErrorDetails{
			Type:    appErr.Type,
			Message: appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		},
		TraceID: traceID,
	})
}

func levelFor(status int) logrus.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logrus.ErrorLevel
	case status == http.StatusNotFound, status == http.StatusMethodNotAllowed:
		return logrus.DebugLevel
	case status >= http.StatusBadRequest:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

func (h *ErrorHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, NewNotFoundError("endpoint").
		WithDetails(map[string]interface{}{"path": r.URL.Path}))
}

func (h *ErrorHandler) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.HandleError(w, r, New(ErrorTypeValidation, "Method not allowed", http.StatusMethodNotAllowed).
		WithDetails(map[string]interface{}{"method": r.Method}))
}

// HandlePanic answers a recovered panic with a generic internal error. The
// panic value is logged, never sent to the client.
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	h.logger.WithFields(logrus.Fields{
		"panic":    recovered,
		"method":   r.Method,
		"path":     r.URL.Path,
		"trace_id": r.Header.Get("X-Request-ID"),
	}).Error("Panic recovered in HTTP handler")

	h.HandleError(w, r, NewInternalError("An unexpected error occurred"))
}

func (h *ErrorHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode error response")
	}
}

// Middleware recovers handler panics. http.ErrAbortHandler is re-raised so
// net/http can abort the connection as intended.
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				h.HandlePanic(w, r, recovered)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
