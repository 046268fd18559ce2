package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vrplayer/vrprobe/internal/errors"
	"github.com/vrplayer/vrprobe/internal/logger"
	"github.com/vrplayer/vrprobe/internal/metrics"
)

// metricsMiddleware records request counts and latency per route template,
// so /api/v1/library/{id} stays one series however many IDs are queried.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := routeTemplate(r)

		rw := logger.NewResponseWriter(w)
		next.ServeHTTP(rw, r)

		took := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, route, rw.StatusCode(), took)

		// Health probes are polled constantly; keep them out of the info log.
		if route == "/health" || route == "/ready" || route == "/live" {
			return
		}

		logger.FromContext(r.Context()).WithFields(logger.Fields{
			"status":      rw.StatusCode(),
			"duration_ms": float64(took.Microseconds()) / 1000,
		}).Info("Request completed")
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// corsMiddleware handles CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// altSvcMiddleware advertises the HTTP/3 endpoint on plain responses.
func (s *Server) altSvcMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.http3Server != nil && r.ProtoMajor < 3 {
			if err := s.http3Server.SetQUICHeaders(w.Header()); err != nil {
				logger.FromContext(r.Context()).WithError(err).Debug("Failed to set Alt-Svc header")
			}
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware applies one token bucket to the whole API.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.errorHandler.HandleError(w, r, errors.NewRateLimitError("too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
