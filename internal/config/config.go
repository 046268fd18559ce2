package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Detection DetectionConfig `mapstructure:"detection"`
	Library   LibraryConfig   `mapstructure:"library"`
}

type ServerConfig struct {
	// Plain HTTP listener used by the player shell
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// HTTP/3 listener
	EnableHTTP3 bool   `mapstructure:"enable_http3"`
	HTTP3Port   int    `mapstructure:"http3_port"`
	TLSCertFile string `mapstructure:"tls_cert_file"`
	TLSKeyFile  string `mapstructure:"tls_key_file"`

	// QUIC specific
	MaxIncomingStreams    int64         `mapstructure:"max_incoming_streams"`
	MaxIncomingUniStreams int64         `mapstructure:"max_incoming_uni_streams"`
	MaxIdleTimeout        time.Duration `mapstructure:"max_idle_timeout"`

	// API rate limiting (requests per second, token bucket burst)
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`

	DebugEndpoints bool `mapstructure:"debug_endpoints"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addresses    []string      `mapstructure:"addresses"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`     // json or text
	Output     string `mapstructure:"output"`     // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"`   // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

type DetectionConfig struct {
	// How long to wait for the decoder to report video metadata.
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout"`
	// Upper bound on the seek wait. Zero waits until the provider answers.
	SeekTimeout time.Duration `mapstructure:"seek_timeout"`

	FFmpegPath   string        `mapstructure:"ffmpeg_path"`
	FFprobePath  string        `mapstructure:"ffprobe_path"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	FrameTimeout time.Duration `mapstructure:"frame_timeout"`
}

type LibraryConfig struct {
	Directories      []string      `mapstructure:"directories"`
	SupportedFormats []string      `mapstructure:"supported_formats"`
	MinFileSize      int64         `mapstructure:"min_file_size"` // bytes
	Workers          int           `mapstructure:"workers"`
	Watch            bool          `mapstructure:"watch"`
	WatchDebounce    time.Duration `mapstructure:"watch_debounce"`
	Catalog          string        `mapstructure:"catalog"` // memory or redis
	CatalogTTL       time.Duration `mapstructure:"catalog_ttl"`
	ReportPath       string        `mapstructure:"report_path"`
}

// Load reads the YAML file at configPath, applies VRPROBE_* environment
// overrides and validates the result. An empty path loads defaults only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Environment variable override
	v.SetEnvPrefix("VRPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration produced by Load("") without reading
// the environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are static; decoding them cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http_port", 7878)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.enable_http3", false)
	v.SetDefault("server.http3_port", 7879)
	v.SetDefault("server.tls_cert_file", "")
	v.SetDefault("server.tls_key_file", "")
	v.SetDefault("server.max_incoming_streams", 100)
	v.SetDefault("server.max_incoming_uni_streams", 100)
	v.SetDefault("server.max_idle_timeout", "30s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.debug_endpoints", false)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)

	// Detection defaults
	v.SetDefault("detection.metadata_timeout", "10s")
	v.SetDefault("detection.seek_timeout", "0s")
	v.SetDefault("detection.ffmpeg_path", "ffmpeg")
	v.SetDefault("detection.ffprobe_path", "ffprobe")
	v.SetDefault("detection.probe_timeout", "30s")
	v.SetDefault("detection.frame_timeout", "60s")

	// Library defaults
	v.SetDefault("library.directories", []string{})
	v.SetDefault("library.supported_formats", []string{".mp4", ".webm", ".avi", ".mov", ".mkv", ".m4v"})
	v.SetDefault("library.min_file_size", 1024)
	v.SetDefault("library.workers", 4)
	v.SetDefault("library.watch", false)
	v.SetDefault("library.watch_debounce", "500ms")
	v.SetDefault("library.catalog", "memory")
	v.SetDefault("library.catalog_ttl", "720h")
	v.SetDefault("library.report_path", "")
}
