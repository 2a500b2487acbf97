package replay

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAdd is called after each add operation.
	// duration is the total time taken, err is nil if successful.
	RecordAdd(duration time.Duration, err error)

	// RecordEviction is called whenever an add overwrites a live record.
	RecordEviction()

	// RecordSample is called after each sample operation.
	// batchSize is the number of records requested.
	RecordSample(batchSize int, duration time.Duration, err error)

	// RecordUpdatePriorities is called after each priority update.
	// count is the number of EIDs passed, skipped the number that were stale.
	RecordUpdatePriorities(count, skipped int, duration time.Duration)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)                 {}
func (NoopMetricsCollector) RecordEviction()                                {}
func (NoopMetricsCollector) RecordSample(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordUpdatePriorities(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount          atomic.Int64
	AddErrors         atomic.Int64
	AddTotalNanos     atomic.Int64
	EvictionCount     atomic.Int64
	SampleCount       atomic.Int64
	SampleErrors      atomic.Int64
	SampledRecords    atomic.Int64
	SampleTotalNanos  atomic.Int64
	UpdateCount       atomic.Int64
	UpdatedPriorities atomic.Int64
	SkippedPriorities atomic.Int64
	DeleteCount       atomic.Int64
	DeleteErrors      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction() {
	b.EvictionCount.Add(1)
}

// RecordSample implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSample(batchSize int, duration time.Duration, err error) {
	b.SampleCount.Add(1)
	b.SampleTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SampleErrors.Add(1)
		return
	}
	b.SampledRecords.Add(int64(batchSize))
}

// RecordUpdatePriorities implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdatePriorities(count, skipped int, duration time.Duration) {
	b.UpdateCount.Add(1)
	b.UpdatedPriorities.Add(int64(count - skipped))
	b.SkippedPriorities.Add(int64(skipped))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:          b.AddCount.Load(),
		AddErrors:         b.AddErrors.Load(),
		AddAvgNanos:       avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		EvictionCount:     b.EvictionCount.Load(),
		SampleCount:       b.SampleCount.Load(),
		SampleErrors:      b.SampleErrors.Load(),
		SampledRecords:    b.SampledRecords.Load(),
		SampleAvgNanos:    avg(b.SampleTotalNanos.Load(), b.SampleCount.Load()),
		UpdateCount:       b.UpdateCount.Load(),
		UpdatedPriorities: b.UpdatedPriorities.Load(),
		SkippedPriorities: b.SkippedPriorities.Load(),
		DeleteCount:       b.DeleteCount.Load(),
		DeleteErrors:      b.DeleteErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of metrics from BasicMetricsCollector.
type BasicMetricsStats struct {
	AddCount          int64
	AddErrors         int64
	AddAvgNanos       int64
	EvictionCount     int64
	SampleCount       int64
	SampleErrors      int64
	SampledRecords    int64
	SampleAvgNanos    int64
	UpdateCount       int64
	UpdatedPriorities int64
	SkippedPriorities int64
	DeleteCount       int64
	DeleteErrors      int64
}
