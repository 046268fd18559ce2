package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" // Import for side effects (registers pprof handlers)
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/detection"
	"github.com/vrplayer/vrprobe/internal/errors"
	"github.com/vrplayer/vrprobe/internal/health"
	"github.com/vrplayer/vrprobe/internal/library"
	"github.com/vrplayer/vrprobe/internal/logger"
)

// Library bundles the detection pipeline the API serves.
type Library struct {
	Detector    *detection.Detector
	Scanner     *library.Scanner
	Catalog     library.Catalog
	Open        library.ProviderOpener
	Directories []string
}

// Server exposes the detector and library over HTTP, and over HTTP/3 when
// configured.
type Server struct {
	config       *config.ServerConfig
	router       *mux.Router
	httpServer   *http.Server
	http3Server  *http3.Server
	logger       *logrus.Logger
	redis        *redis.Client
	healthMgr    *health.Manager
	ffmpeg       *health.FFmpegChecker
	errorHandler *errors.ErrorHandler
	limiter      *rate.Limiter
	lib          *Library

	// Held while a library scan requested over the API runs.
	scanMu sync.Mutex

	routesOnce sync.Once
}

// New creates a server. redisClient may be nil when the catalog is kept in
// memory.
func New(cfg *config.Config, log *logrus.Logger, redisClient *redis.Client, lib *Library) *Server {
	s := &Server{
		config:       &cfg.Server,
		router:       mux.NewRouter(),
		logger:       log,
		redis:        redisClient,
		healthMgr:    health.NewManager(logger.FromLogrus(log).WithField("component", "health")),
		ffmpeg:       health.NewFFmpegChecker(&cfg.Detection, nil),
		errorHandler: errors.NewErrorHandler(log),
		limiter:      rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst),
		lib:          lib,
	}

	s.registerHealthCheckers(cfg)

	return s
}

// Start serves until ctx is canceled or a listener fails, then shuts down.
func (s *Server) Start(ctx context.Context) error {
	s.setupRoutes()

	go s.healthMgr.StartPeriodicChecks(ctx, 30*time.Second)

	errCh := make(chan error, 2)

	// HTTP/3 goes first so the Alt-Svc header is known before plain
	// requests are served.
	if s.config.EnableHTTP3 {
		if err := s.startHTTP3Server(errCh); err != nil {
			return err
		}
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.WithField("port", s.config.HTTPPort).Info("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

func (s *Server) startHTTP3Server(errCh chan<- error) error {
	cert, err := tls.LoadX509KeyPair(s.config.TLSCertFile, s.config.TLSKeyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificates: %w", err)
	}

	s.http3Server = &http3.Server{
		Addr:    fmt.Sprintf(":%d", s.config.HTTP3Port),
		Handler: s.router,
		TLSConfig: &tls.Config{
			MinVersion:   tls.VersionTLS13,
			NextProtos:   []string{"h3"},
			Certificates: []tls.Certificate{cert},
		},
		QUICConfig: &quic.Config{
			MaxIncomingStreams:    s.config.MaxIncomingStreams,
			MaxIncomingUniStreams: s.config.MaxIncomingUniStreams,
			MaxIdleTimeout:        s.config.MaxIdleTimeout,
		},
	}

	go func() {
		s.logger.WithField("port", s.config.HTTP3Port).Info("Starting HTTP/3 server")
		if err := s.http3Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http3 server: %w", err)
		}
	}()

	return nil
}

// Shutdown stops both listeners. The plain HTTP server drains in-flight
// requests until ctx expires; HTTP/3 connections are closed immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("failed to shutdown http server: %w", err)
		}
	}

	if s.http3Server != nil {
		if err := s.http3Server.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to shutdown http3 server: %w", err)
		}
	}

	if firstErr == nil {
		s.logger.Info("HTTP server shutdown complete")
	}
	return firstErr
}

// setupRoutes configures all routes. It is safe to call more than once.
func (s *Server) setupRoutes() {
	s.routesOnce.Do(s.registerRoutes)
}

func (s *Server) registerRoutes() {
	s.router.Use(logger.RequestLoggerMiddleware(s.logger))
	s.router.Use(s.errorHandler.Middleware)
	s.router.Use(s.metricsMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.altSvcMiddleware)

	healthHandler := health.NewHandler(s.healthMgr)
	s.router.HandleFunc("/health", healthHandler.HandleHealth).Methods("GET")
	s.router.HandleFunc("/ready", healthHandler.HandleReady).Methods("GET")
	s.router.HandleFunc("/live", healthHandler.HandleLive).Methods("GET")

	s.router.HandleFunc("/version", s.handleVersion).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/detect", s.handleDetect).Methods("POST", "OPTIONS")
	api.HandleFunc("/library", s.handleListLibrary).Methods("GET")
	api.HandleFunc("/library/scan", s.handleScanLibrary).Methods("POST", "OPTIONS")
	api.HandleFunc("/library/{id}", s.handleGetEntry).Methods("GET")
	api.HandleFunc("/library/{id}", s.handleDeleteEntry).Methods("DELETE", "OPTIONS")

	if s.config.DebugEndpoints {
		s.setupDebugEndpoints()
	}

	s.router.NotFoundHandler = http.HandlerFunc(s.errorHandler.HandleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.errorHandler.HandleMethodNotAllowed)
}

func (s *Server) registerHealthCheckers(cfg *config.Config) {
	s.healthMgr.Register(s.ffmpeg)
	s.healthMgr.Register(health.NewDirectoryChecker(cfg.Library.Directories))

	if s.redis != nil {
		s.healthMgr.Register(health.NewRedisChecker(s.redis))
	}
}

// setupDebugEndpoints exposes pprof and installation details.
func (s *Server) setupDebugEndpoints() {
	s.logger.Info("Enabling debug endpoints")

	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	s.router.HandleFunc("/debug/info", func(w http.ResponseWriter, r *http.Request) {
		info := map[string]interface{}{
			"protocols": map[string]bool{
				"http":  true,
				"http3": s.config.EnableHTTP3,
			},
			"ports": map[string]int{
				"http":  s.config.HTTPPort,
				"http3": s.config.HTTP3Port,
			},
			"ffmpeg":        s.ffmpeg.Info(r.Context()),
			"debug_enabled": true,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(info)
	}).Methods("GET")
}

// HealthManager returns the manager used by /health and /ready.
func (s *Server) HealthManager() *health.Manager {
	return s.healthMgr
}

// Handler returns the fully routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	s.setupRoutes()
	return s.router
}
