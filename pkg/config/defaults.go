package config

import (
	"strings"
	"time"

	"github.com/marmos91/webdisk/pkg/adapter/web"
	"github.com/marmos91/webdisk/pkg/disk"
	"github.com/marmos91/webdisk/pkg/telemetry"
)

// DefaultFilesystemPath is where blobs live when nothing else is configured.
const DefaultFilesystemPath = "/tmp/webdisk"

// ApplyDefaults fills in zero values with defaults. Explicit values are
// never overwritten.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyHTTPDefaults(&cfg.HTTP)
	applyMetricsDefaults(&cfg.Metrics)
	applyTracingDefaults(&cfg.Tracing)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize so the rest of the code only sees uppercase levels
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 100
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 30
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.WarmupTimeout == 0 {
		cfg.WarmupTimeout = 5 * time.Minute
	}
	if cfg.MaxConcurrentIO == 0 {
		cfg.MaxConcurrentIO = disk.DefaultMaxConcurrentIO
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = DefaultFilesystemPath
	}
	if _, ok := cfg.S3["max_retries"]; !ok {
		cfg.S3["max_retries"] = 10
	}
}

func applyHTTPDefaults(cfg *web.HTTPConfig) {
	// Enable HTTP by default unless the section was explicitly configured
	if !cfg.Enabled && cfg.Port == 0 {
		cfg.Enabled = true
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyTracingDefaults(cfg *telemetry.Config) {
	if cfg.Exporter == "" {
		cfg.Exporter = telemetry.ExporterOTLP
	}
	if cfg.SampleRatio == 0 {
		cfg.SampleRatio = 1
	}
}

// GetDefaultConfig returns a Config with all defaults applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"path": DefaultFilesystemPath},
		},
		HTTP: web.HTTPConfig{
			Enabled: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
