package segindex

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    buildCounter   prometheus.Counter
//	    buildHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordBuild(indexType string, duration time.Duration, err error) {
//	    p.buildCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordCall is called after every entry point with its outcome.
	RecordCall(op string, code Code, duration time.Duration)

	// RecordBuild is called after each build, from memory, files or a space.
	RecordBuild(indexType string, duration time.Duration, err error)

	// RecordSerialize is called after each serialization with the artifact size.
	RecordSerialize(bytes int64, duration time.Duration, err error)

	// RecordUpload is called after each upload with the number of files
	// written and their total size.
	RecordUpload(files int, bytes int64, duration time.Duration, err error)

	// RecordCleanup is called after each local cleanup.
	RecordCleanup(duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCall(string, Code, time.Duration)        {}
func (NoopMetricsCollector) RecordBuild(string, time.Duration, error)      {}
func (NoopMetricsCollector) RecordSerialize(int64, time.Duration, error)   {}
func (NoopMetricsCollector) RecordUpload(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordCleanup(time.Duration)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CallCount        atomic.Int64
	CallFailures     atomic.Int64
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildTotalNanos  atomic.Int64
	SerializeCount   atomic.Int64
	SerializeErrors  atomic.Int64
	SerializedBytes  atomic.Int64
	UploadCount      atomic.Int64
	UploadErrors     atomic.Int64
	UploadedFiles    atomic.Int64
	UploadedBytes    atomic.Int64
	UploadTotalNanos atomic.Int64
	CleanupCount     atomic.Int64
}

// RecordCall implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCall(_ string, code Code, _ time.Duration) {
	b.CallCount.Add(1)
	if code != Success {
		b.CallFailures.Add(1)
	}
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(_ string, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
	}
}

// RecordSerialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSerialize(bytes int64, _ time.Duration, err error) {
	b.SerializeCount.Add(1)
	if err != nil {
		b.SerializeErrors.Add(1)
		return
	}
	b.SerializedBytes.Add(bytes)
}

// RecordUpload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpload(files int, bytes int64, duration time.Duration, err error) {
	b.UploadCount.Add(1)
	b.UploadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UploadErrors.Add(1)
		return
	}
	b.UploadedFiles.Add(int64(files))
	b.UploadedBytes.Add(bytes)
}

// RecordCleanup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCleanup(time.Duration) {
	b.CleanupCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CallCount:       b.CallCount.Load(),
		CallFailures:    b.CallFailures.Load(),
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		BuildAvgNanos:   avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		SerializeCount:  b.SerializeCount.Load(),
		SerializeErrors: b.SerializeErrors.Load(),
		SerializedBytes: b.SerializedBytes.Load(),
		UploadCount:     b.UploadCount.Load(),
		UploadErrors:    b.UploadErrors.Load(),
		UploadedFiles:   b.UploadedFiles.Load(),
		UploadedBytes:   b.UploadedBytes.Load(),
		UploadAvgNanos:  avg(b.UploadTotalNanos.Load(), b.UploadCount.Load()),
		CleanupCount:    b.CleanupCount.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CallCount       int64
	CallFailures    int64
	BuildCount      int64
	BuildErrors     int64
	BuildAvgNanos   int64
	SerializeCount  int64
	SerializeErrors int64
	SerializedBytes int64
	UploadCount     int64
	UploadErrors    int64
	UploadedFiles   int64
	UploadedBytes   int64
	UploadAvgNanos  int64
	CleanupCount    int64
}
