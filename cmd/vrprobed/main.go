package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vrplayer/vrprobe/internal/config"
	"github.com/vrplayer/vrprobe/internal/detection"
	"github.com/vrplayer/vrprobe/internal/library"
	"github.com/vrplayer/vrprobe/internal/logger"
	"github.com/vrplayer/vrprobe/internal/media"
	"github.com/vrplayer/vrprobe/internal/server"
	"github.com/vrplayer/vrprobe/pkg/version"
)

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to configuration file (defaults only when empty)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetInfo().String())
		os.Exit(0)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithField("version", version.GetInfo().Short()).Info("Starting vrprobe daemon")
	log.WithField("config_path", configPath).Debug("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Daemon error")
	}

	log.Info("Daemon shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	appLog := logger.FromLogrus(log)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		var err error
		if redisClient, err = connectRedis(ctx, &cfg.Redis); err != nil {
			return err
		}
		log.Info("Connected to Redis successfully")
	}

	catalog := openCatalog(cfg, redisClient, appLog)
	defer func() {
		if err := catalog.Close(); err != nil {
			log.WithError(err).Error("Failed to close catalog")
		}
		// The Redis catalog owns the client; close it here only otherwise.
		if redisClient != nil && cfg.Library.Catalog != "redis" {
			if err := redisClient.Close(); err != nil {
				log.WithError(err).Error("Failed to close Redis connection")
			}
		}
	}()

	if cfg.Metrics.Enabled {
		metricsSrv := startMetricsServer(cfg.Metrics, appLog)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	detector := detection.NewDetector(&cfg.Detection, appLog)
	open := func(path string) (detection.FrameProvider, error) {
		return media.OpenProvider(path, &cfg.Detection, cfg.Library.SupportedFormats, media.ExecRunner{})
	}
	scanner := library.NewScanner(&cfg.Library, detector, catalog, open, appLog)

	if len(cfg.Library.Directories) > 0 {
		go initialScan(ctx, cfg, scanner, appLog)

		if cfg.Library.Watch {
			watcher := library.NewWatcher(scanner, cfg.Library.Directories, cfg.Library.WatchDebounce, appLog)
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("start library watcher: %w", err)
			}
			defer watcher.Stop()
		}
	}

	srv := server.New(cfg, log, redisClient, &server.Library{
		Detector:    detector,
		Scanner:     scanner,
		Catalog:     catalog,
		Open:        open,
		Directories: cfg.Library.Directories,
	})

	return srv.Start(ctx)
}

func connectRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addresses[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout+time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func openCatalog(cfg *config.Config, client *redis.Client, log logger.Logger) library.Catalog {
	if cfg.Library.Catalog == "redis" {
		return library.NewRedisCatalog(client, log, cfg.Library.CatalogTTL)
	}
	return library.NewMemoryCatalog()
}

// initialScan catalogs the configured directories once at startup and
// writes the report if one is configured.
func initialScan(ctx context.Context, cfg *config.Config, scanner *library.Scanner, log logger.Logger) {
	summary, err := scanner.Scan(ctx, cfg.Library.Directories, nil)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Initial library scan failed")
		}
		return
	}

	if cfg.Library.ReportPath == "" {
		return
	}
	if err := library.WriteReport(cfg.Library.ReportPath, summary.Entries); err != nil {
		log.WithError(err).Error("Failed to write library report")
		return
	}
	log.WithField("path", cfg.Library.ReportPath).Info("Library report written")
}

// startMetricsServer serves Prometheus metrics on their own port.
func startMetricsServer(cfg config.MetricsConfig, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server error")
		}
	}()

	return srv
}
