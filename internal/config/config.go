package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the stream service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"stream-api"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"STREAM_API_PORT" envDefault:"8290"`
	LogLevel        string        `env:"STREAM_LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Database
	DBPostgresqlWriteDSN string `env:"DB_POSTGRESQL_WRITE_DSN,notEmpty"`

	// Database Connection Pool
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Storage Backend Selection
	StorageBackend string `env:"STREAM_STORAGE_BACKEND" envDefault:"s3"` // Options: "s3" or "local"

	// Local Storage Configuration
	LocalStoragePath    string `env:"STREAM_LOCAL_STORAGE_PATH"`
	LocalStorageBaseURL string `env:"STREAM_LOCAL_STORAGE_BASE_URL"`
	LocalSigningSecret  string `env:"STREAM_LOCAL_SIGNING_SECRET"`

	// S3 Storage Configuration
	S3Endpoint       string `env:"STREAM_S3_ENDPOINT"`
	S3PublicEndpoint string `env:"STREAM_S3_PUBLIC_ENDPOINT"`
	S3Region         string `env:"STREAM_S3_REGION" envDefault:"us-west-2"`
	S3Bucket         string `env:"STREAM_S3_BUCKET"`
	S3AccessKeyID    string `env:"STREAM_S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"STREAM_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle   bool   `env:"STREAM_S3_USE_PATH_STYLE" envDefault:"true"`

	// Signed URL TTLs: short for uploads, longer for playback.
	ReadURLTTL  time.Duration `env:"STREAM_READ_URL_TTL" envDefault:"1h"`
	WriteURLTTL time.Duration `env:"STREAM_WRITE_URL_TTL" envDefault:"15m"`

	// Transcoding
	FFmpegPath        string        `env:"STREAM_FFMPEG_PATH" envDefault:"ffmpeg"`
	SegmentSeconds    int           `env:"STREAM_SEGMENT_SECONDS" envDefault:"10"`
	TranscodeTimeout  time.Duration `env:"STREAM_TRANSCODE_TIMEOUT" envDefault:"10m"`
	TranscodeThreads  int           `env:"STREAM_TRANSCODE_THREADS" envDefault:"2"`
	MaxConcurrentJobs int           `env:"STREAM_MAX_CONCURRENT_JOBS" envDefault:"0"` // 0 = NumCPU/2
	ScratchDir        string        `env:"STREAM_SCRATCH_DIR"`                        // empty = os temp dir
	MaxSourceBytes    int64         `env:"STREAM_MAX_SOURCE_BYTES" envDefault:"1073741824"`

	// Upload parallelism per job. Segments may upload in any order; the
	// playlist always uploads last.
	UploadConcurrency int `env:"STREAM_UPLOAD_CONCURRENCY" envDefault:"4"`

	// Refresh scheduler
	RefreshInterval time.Duration `env:"STREAM_REFRESH_INTERVAL" envDefault:"30m"`
	RefreshBuffer   time.Duration `env:"STREAM_REFRESH_BUFFER" envDefault:"5m"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)
	cfg.S3PublicEndpoint = strings.TrimSpace(cfg.S3PublicEndpoint)

	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = 1 << 30
	}
	if cfg.SegmentSeconds <= 0 {
		cfg.SegmentSeconds = 10
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 4
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = runtime.NumCPU() / 2
		if cfg.MaxConcurrentJobs < 1 {
			cfg.MaxConcurrentJobs = 1
		}
	}
	if cfg.RefreshBuffer >= cfg.ReadURLTTL {
		return nil, fmt.Errorf("STREAM_REFRESH_BUFFER must be shorter than STREAM_READ_URL_TTL")
	}
	return cfg, nil
}

// GetDatabaseWriteDSN returns the write database connection string.
func (c *Config) GetDatabaseWriteDSN() string {
	return c.DBPostgresqlWriteDSN
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsLocalStorage returns true if local storage backend is configured.
func (c *Config) IsLocalStorage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "local"
}

// IsS3Storage returns true if S3 storage backend is configured.
func (c *Config) IsS3Storage() bool {
	backend := strings.ToLower(strings.TrimSpace(c.StorageBackend))
	return backend == "" || backend == "s3"
}
