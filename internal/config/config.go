// Package config loads the server configuration from environment variables.
// Every setting has a default except where noted, and Validate reports all
// problems at once so a bad deployment fails on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all server configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Data     DataConfig
	Backup   BackupConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds snapshot storage settings.
type DatabaseConfig struct {
	// URL selects the store: postgres:// or postgresql:// for PostgreSQL,
	// sqlite://path or a plain file path for SQLite (default: data/dealdesk.db).
	// Set DATABASE_URL=off to run memory-only.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"data/dealdesk.db"`

	// MaxConns is the PostgreSQL pool size (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the number of idle PostgreSQL connections kept (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Disabled reports whether snapshots are turned off.
func (c *DatabaseConfig) Disabled() bool {
	return c.URL == "off" || c.URL == "none"
}

// UploadConfig holds CSV import settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted CSV size in bytes (default: 20MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the maximum number of imports running at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an import waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single import (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// SecurityConfig holds proxy trust settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text, json or pretty (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DataConfig names the files that feed datasets.
type DataConfig struct {
	// DefinitionsFile is an optional YAML file of extra dataset definitions.
	DefinitionsFile string `env:"DATA_DEFINITIONS_FILE"`

	// WatchFile is an optional CSV file re-imported whenever it changes.
	WatchFile string `env:"DATA_WATCH_FILE"`

	// WatchDataset is the dataset WatchFile is imported into (default: deals)
	WatchDataset string `env:"DATA_WATCH_DATASET" default:"deals"`
}

// BackupConfig holds CSV backup settings.
type BackupConfig struct {
	// Dir enables periodic CSV backups into this directory when set.
	Dir string `env:"BACKUP_DIR"`

	// Interval is how often backups run (default: 1h)
	Interval time.Duration `env:"BACKUP_INTERVAL" default:"1h"`

	// Keep is the number of backups kept per dataset (default: 24)
	Keep int `env:"BACKUP_KEEP" default:"24"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
