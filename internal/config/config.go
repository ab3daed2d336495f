// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and environment on top.
// - External errors must be wrapped via this package's error sentinels.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// CacheCapacity bounds the number of entries in the result cache.
	// When an insert would exceed it, the least-recently-used entry goes.
	CacheCapacity int `koanf:"cache_capacity"`

	// CacheTTLSeconds bounds the age of a cached result. Entries older
	// than this are treated as misses regardless of size pressure.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// ModelTimeoutMS bounds a single classification, queue wait included.
	ModelTimeoutMS int `koanf:"model_timeout_ms"`

	// WorkerCount sets the number of inference workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory inference task queue.
	QueueSize int `koanf:"queue_size"`

	// MaxTextBytes caps the byte length of a classifiable text.
	MaxTextBytes int `koanf:"max_text_bytes"`

	// ModelPath points at a JSON weight file on disk. Empty selects the
	// built-in weights shipped with the binary.
	ModelPath string `koanf:"model_path"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8000",
		CacheCapacity:   4096,
		CacheTTLSeconds: 3600,
		ModelTimeoutMS:  5000,
		WorkerCount:     runtime.NumCPU(),
		QueueSize:       1024,
		MaxTextBytes:    5000,
		ModelPath:       "",
	}
}

// CacheTTL returns the cache entry time-to-live as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ModelTimeout returns the per-classification budget as a duration.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutMS) * time.Millisecond
}
