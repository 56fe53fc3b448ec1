package web

import (
	"fmt"
	"time"
)

// HTTPConfig configures the HTTP adapter.
//
// Timeouts bound how long a single client may hold a connection. Uploads and
// downloads of large blobs are whole-object transfers, so WriteTimeout and
// ReadTimeout must leave room for the largest expected blob.
type HTTPConfig struct {
	// Enabled controls whether the HTTP adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port to listen on. 0 defaults to 8080; a negative
	// value binds an ephemeral loopback port (tests).
	Port int `mapstructure:"port" validate:"min=-1,max=65535"`

	// ReadTimeout bounds reading an entire request, body included.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing an entire response, body included.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections idle for longer.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout bounds the wait for in-flight requests on shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// MaxUploadBytes caps the request body of uploads. 0 means unlimited.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"min=0"`

	// RateLimit throttles requests per client IP.
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-client request throttling.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client. 0 disables limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the bucket size per client. 0 defaults to RequestsPerSecond.
	Burst uint `mapstructure:"burst"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *HTTPConfig) applyDefaults() {
	// Enabled defaults are handled in pkg/config so an explicit false in a
	// configuration file survives.
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks the configuration after defaults were applied.
func (c *HTTPConfig) validate() error {
	if c.Port < -1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("invalid timeouts: must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("invalid MaxUploadBytes %d: must be >= 0", c.MaxUploadBytes)
	}
	return nil
}
