package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection config: %w", err)
	}

	if err := c.Library.Validate(); err != nil {
		return fmt.Errorf("library config: %w", err)
	}

	if c.Library.Catalog == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("library config: redis catalog requires redis.enabled")
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.HTTPPort < 1 || s.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", s.HTTPPort)
	}

	if s.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be positive")
	}

	if s.RateBurst <= 0 {
		return fmt.Errorf("rate_burst must be positive")
	}

	if !s.EnableHTTP3 {
		return nil
	}

	if s.HTTP3Port < 1 || s.HTTP3Port > 65535 {
		return fmt.Errorf("invalid HTTP3 port: %d", s.HTTP3Port)
	}

	if s.HTTP3Port == s.HTTPPort {
		return fmt.Errorf("HTTP and HTTP3 ports must be different")
	}

	if s.TLSCertFile == "" {
		return fmt.Errorf("TLS certificate file is required for HTTP/3")
	}

	if s.TLSKeyFile == "" {
		return fmt.Errorf("TLS key file is required for HTTP/3")
	}

	if _, err := os.Stat(s.TLSCertFile); os.IsNotExist(err) {
		return fmt.Errorf("TLS certificate file not found: %s", s.TLSCertFile)
	}

	if _, err := os.Stat(s.TLSKeyFile); os.IsNotExist(err) {
		return fmt.Errorf("TLS key file not found: %s", s.TLSKeyFile)
	}

	if s.MaxIncomingStreams <= 0 {
		return fmt.Errorf("max_incoming_streams must be positive")
	}

	if s.MaxIncomingUniStreams <= 0 {
		return fmt.Errorf("max_incoming_uni_streams must be positive")
	}

	return nil
}

func (r *RedisConfig) Validate() error {
	if !r.Enabled {
		return nil
	}

	if len(r.Addresses) == 0 {
		return fmt.Errorf("at least one Redis address is required")
	}

	if r.DB < 0 {
		return fmt.Errorf("invalid Redis database number: %d", r.DB)
	}

	if r.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}

	if r.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive")
	}

	if r.MinIdleConns < 0 {
		return fmt.Errorf("min_idle_conns cannot be negative")
	}

	if r.MinIdleConns > r.PoolSize {
		return fmt.Errorf("min_idle_conns cannot be greater than pool_size")
	}

	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"panic": true,
		"fatal": true,
		"error": true,
		"warn":  true,
		"info":  true,
		"debug": true,
		"trace": true,
	}

	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	if l.Format != "json" && l.Format != "text" {
		return fmt.Errorf("log format must be 'json' or 'text'")
	}

	if l.Output != "stdout" && l.Output != "stderr" {
		if l.MaxSize <= 0 {
			return fmt.Errorf("max_size must be positive for file output")
		}
		if l.MaxBackups < 0 {
			return fmt.Errorf("max_backups cannot be negative")
		}
		if l.MaxAge < 0 {
			return fmt.Errorf("max_age cannot be negative")
		}
	}

	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", m.Port)
		}

		if m.Path == "" {
			return fmt.Errorf("metrics path cannot be empty")
		}
	}

	return nil
}

func (d *DetectionConfig) Validate() error {
	if d.MetadataTimeout <= 0 {
		return fmt.Errorf("metadata_timeout must be positive")
	}

	if d.SeekTimeout < 0 {
		return fmt.Errorf("seek_timeout cannot be negative")
	}

	if d.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	if d.FFprobePath == "" {
		return fmt.Errorf("ffprobe_path cannot be empty")
	}

	if d.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}

	if d.FrameTimeout <= 0 {
		return fmt.Errorf("frame_timeout must be positive")
	}

	return nil
}

func (l *LibraryConfig) Validate() error {
	if len(l.SupportedFormats) == 0 {
		return fmt.Errorf("supported_formats cannot be empty")
	}

	for _, ext := range l.SupportedFormats {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("supported format %q must start with a dot", ext)
		}
	}

	if l.MinFileSize < 0 {
		return fmt.Errorf("min_file_size cannot be negative")
	}

	if l.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}

	if l.Watch && l.WatchDebounce <= 0 {
		return fmt.Errorf("watch_debounce must be positive when watch is enabled")
	}

	switch l.Catalog {
	case "memory", "redis":
	default:
		return fmt.Errorf("catalog must be 'memory' or 'redis', got %q", l.Catalog)
	}

	if l.CatalogTTL < 0 {
		return fmt.Errorf("catalog_ttl cannot be negative")
	}

	return nil
}
