package prometheus

import (
	"errors"
	"time"

	"github.com/marmos91/webdisk/pkg/disk"
	"github.com/marmos91/webdisk/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// diskMetrics is the Prometheus implementation of disk.Metrics.
type diskMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	compensations     *prometheus.CounterVec
	indexSize         prometheus.Gauge
	warmUpDuration    prometheus.Gauge
	warmUpNames       prometheus.Gauge
	warmUpFailures    prometheus.Counter
}

// NewDiskMetrics creates a Prometheus-backed disk.Metrics on the global
// registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// makes the Disk use its built-in no-op implementation.
func NewDiskMetrics() disk.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return NewDiskMetricsWith(metrics.GetRegistry())
}

// NewDiskMetricsWith registers the disk collectors on reg.
func NewDiskMetricsWith(reg prometheus.Registerer) disk.Metrics {
	return &diskMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "webdisk_disk_operations_total",
				Help: "Total number of disk operations by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "webdisk_disk_operation_duration_seconds",
				Help: "Duration of disk operations in seconds",
				Buckets: []float64{
					0.0005, // 500us
					0.001,  // 1ms
					0.005,  // 5ms
					0.025,  // 25ms
					0.1,    // 100ms
					0.5,    // 500ms
					2.5,    // 2.5s
					10.0,   // 10s
				},
			},
			[]string{"operation"},
		),
		compensations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "webdisk_disk_compensations_total",
				Help: "Index rollbacks applied after a storage failure",
			},
			[]string{"operation"},
		),
		indexSize: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "webdisk_index_names",
				Help: "Current number of indexed names",
			},
		),
		warmUpDuration: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "webdisk_warmup_duration_seconds",
				Help: "Duration of the last index warm-up",
			},
		),
		warmUpNames: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "webdisk_warmup_names",
				Help: "Names discovered by the last index warm-up",
			},
		),
		warmUpFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "webdisk_warmup_failures_total",
				Help: "Failed index warm-ups",
			},
		),
	}
}

func (m *diskMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = outcome(err)
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *diskMetrics) RecordCompensation(operation string) {
	m.compensations.WithLabelValues(operation).Inc()
}

func (m *diskMetrics) SetIndexSize(size int) {
	m.indexSize.Set(float64(size))
}

func (m *diskMetrics) ObserveWarmUp(duration time.Duration, names int, err error) {
	m.warmUpDuration.Set(duration.Seconds())
	if err != nil {
		m.warmUpFailures.Inc()
		return
	}
	m.warmUpNames.Set(float64(names))
}

// outcome maps an error to a low-cardinality status label.
func outcome(err error) string {
	switch {
	case disk.IsIOError(err):
		return "io_error"
	case errors.Is(err, disk.ErrNameSpaceExhausted):
		return "exhausted"
	default:
		return "client_error"
	}
}
