package config

import (
	"github.com/marmos91/webdisk/pkg/disk"
	"github.com/marmos91/webdisk/pkg/metrics"
	promMetrics "github.com/marmos91/webdisk/pkg/metrics/prometheus"
	blobS3 "github.com/marmos91/webdisk/pkg/store/blob/s3"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// DiskMetrics is nil when disabled; the Disk then uses its no-op.
	DiskMetrics disk.Metrics

	// HTTPMetrics is never nil
	HTTPMetrics metrics.HTTPMetrics

	// S3Metrics is nil when disabled
	S3Metrics blobS3.S3Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled, the global Prometheus registry is initialized and
// every collector registers on it. Otherwise no-op implementations are
// returned and no server is created.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			HTTPMetrics: metrics.NewNoopHTTPMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:      server,
		DiskMetrics: promMetrics.NewDiskMetrics(),
		HTTPMetrics: promMetrics.NewHTTPMetrics(),
		S3Metrics:   promMetrics.NewS3Metrics(),
	}
}
