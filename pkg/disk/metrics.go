package disk

import "time"

// Metrics provides observability for Disk operations.
//
// This is optional: pass nil in Options to skip collection. pkg/metrics
// provides the Prometheus implementation.
type Metrics interface {
	// ObserveOperation records a Disk operation ("create", "put", "delete",
	// "read") with its duration and outcome
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordCompensation counts an index rollback after a storage failure
	RecordCompensation(operation string)

	// SetIndexSize reports the current number of indexed names
	SetIndexSize(size int)

	// ObserveWarmUp records the duration and outcome of the startup scan
	ObserveWarmUp(duration time.Duration, names int, err error)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordCompensation(string)                     {}
func (noopMetrics) SetIndexSize(int)                              {}
func (noopMetrics) ObserveWarmUp(time.Duration, int, error)       {}
