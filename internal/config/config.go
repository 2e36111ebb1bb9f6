// Package config loads dataclean settings from environment variables with
// defaults, and validates them on startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Cleaning CleaningConfig
	Pipeline PipelineConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds PostgreSQL settings. When URL is empty runs are kept
// in the embedded store instead.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a PostgreSQL URL is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// StorageConfig holds embedded run store settings.
type StorageConfig struct {
	// BoltPath is the bbolt file for run records (default: data/runs.db)
	BoltPath string `env:"STORE_BOLT_PATH" default:"data/runs.db"`
}

// CleaningConfig holds engine and artifact settings.
type CleaningConfig struct {
	// InconsistencyThreshold is the violation ratio at or above which a rule
	// is not auto-repaired (default: 0.2)
	InconsistencyThreshold float64 `env:"CLEAN_INCONSISTENCY_THRESHOLD" default:"0.2"`

	// DataDir holds the raw input CSVs (default: data/raw)
	DataDir string `env:"CLEAN_DATA_DIR" default:"data/raw"`

	// OutputDir receives cleaned_<dataset>.csv files (default: data/cleaned)
	OutputDir string `env:"CLEAN_OUTPUT_DIR" default:"data/cleaned"`

	// QuarantineDir receives <dataset>_<reason>.csv files (default: data/inconsistencies)
	QuarantineDir string `env:"CLEAN_QUARANTINE_DIR" default:"data/inconsistencies"`

	// LogDir receives run reports (default: logs)
	LogDir string `env:"CLEAN_LOG_DIR" default:"logs"`

	// MemoryThresholdMB triggers a warning when a dataset grows past it (default: 1000)
	MemoryThresholdMB float64 `env:"CLEAN_MEMORY_THRESHOLD_MB" default:"1000"`

	// RuleFile optionally overrides dataset definitions from YAML
	RuleFile string `env:"CLEAN_RULE_FILE"`

	// Datasets restricts batch runs to these keys; empty means all
	Datasets []string `env:"CLEAN_DATASETS"`
}

// PipelineConfig holds concurrency and upload limits.
type PipelineConfig struct {
	// Workers is the number of datasets cleaned in parallel (default: 4)
	Workers int `env:"PIPELINE_WORKERS" default:"4"`

	// MaxConcurrent is the number of HTTP cleaning runs allowed at once (default: 2)
	MaxConcurrent int `env:"PIPELINE_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long an HTTP run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"PIPELINE_MAX_WAIT_TIME" default:"30s"`

	// MaxUploadSize is the largest accepted upload in bytes (default: 100MB)
	MaxUploadSize int64 `env:"PIPELINE_MAX_UPLOAD_SIZE" default:"104857600"`

	// Timeout bounds one dataset run (default: 10m)
	Timeout time.Duration `env:"PIPELINE_TIMEOUT" default:"10m"`
}

// SecurityConfig holds HTTP access settings.
type SecurityConfig struct {
	// RequireAPIKey rejects API requests without a valid X-API-Key header
	RequireAPIKey bool `env:"SECURITY_REQUIRE_API_KEY" default:"false"`

	// APIKeys lists accepted API keys (comma-separated)
	APIKeys []string `env:"SECURITY_API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Real-IP/X-Forwarded-For headers are honored
	TrustedProxies []string `env:"SECURITY_TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File additionally receives log output when set
	File string `env:"LOG_FILE"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
