package unpackqa

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordUnpack is called after each unpack operation.
	// elements is the number of QA values, flags the number of decoded flags,
	// duration the total time taken, err is nil if successful.
	RecordUnpack(elements, flags int, duration time.Duration, err error)

	// RecordValidationFailure is called when a QA array is rejected.
	RecordValidationFailure(err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUnpack(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordValidationFailure(error)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UnpackCount        atomic.Int64
	UnpackErrors       atomic.Int64
	UnpackTotalNanos   atomic.Int64
	ElementsDecoded    atomic.Int64
	FlagsDecoded       atomic.Int64
	ValidationFailures atomic.Int64
}

// RecordUnpack implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnpack(elements, flags int, duration time.Duration, err error) {
	b.UnpackCount.Add(1)
	b.UnpackTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UnpackErrors.Add(1)
		return
	}
	b.ElementsDecoded.Add(int64(elements))
	b.FlagsDecoded.Add(int64(flags))
}

// RecordValidationFailure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordValidationFailure(error) {
	b.ValidationFailures.Add(1)
}

// Stats is a point-in-time snapshot of BasicMetricsCollector.
type Stats struct {
	UnpackCount        int64
	UnpackErrors       int64
	UnpackAvgNanos     int64
	ElementsDecoded    int64
	FlagsDecoded       int64
	ValidationFailures int64
}

// GetStats returns a snapshot of the collected metrics.
func (b *BasicMetricsCollector) GetStats() Stats {
	count := b.UnpackCount.Load()
	var avg int64
	if count > 0 {
		avg = b.UnpackTotalNanos.Load() / count
	}
	return Stats{
		UnpackCount:        count,
		UnpackErrors:       b.UnpackErrors.Load(),
		UnpackAvgNanos:     avg,
		ElementsDecoded:    b.ElementsDecoded.Load(),
		FlagsDecoded:       b.FlagsDecoded.Load(),
		ValidationFailures: b.ValidationFailures.Load(),
	}
}
