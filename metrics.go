package vmtest

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting per-file counters of a run.
// Implement this interface to forward them to a monitoring system.
type MetricsCollector interface {
	// RecordProvision is called after each file is created (or fails to be).
	// bytes is the file size, err is nil if successful.
	RecordProvision(index int, bytes int64, duration time.Duration, err error)

	// RecordMap is called after each mapping attempt.
	RecordMap(index int, bytes int64, duration time.Duration, err error)

	// RecordHold is called once the observation window ends.
	RecordHold(duration time.Duration)

	// RecordUnmap is called after each mapping release attempt.
	RecordUnmap(index int, duration time.Duration, err error)

	// RecordDelete is called after each file removal attempt.
	RecordDelete(index int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordProvision(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordMap(int, int64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordHold(time.Duration)                         {}
func (NoopMetricsCollector) RecordUnmap(int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordDelete(int, time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory counters.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ProvisionCount   atomic.Int64
	ProvisionErrors  atomic.Int64
	ProvisionedBytes atomic.Int64
	MapCount         atomic.Int64
	MapErrors        atomic.Int64
	MappedBytes      atomic.Int64
	HoldNanos        atomic.Int64
	UnmapCount       atomic.Int64
	UnmapErrors      atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
}

// RecordProvision implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProvision(index int, bytes int64, duration time.Duration, err error) {
	b.ProvisionCount.Add(1)
	if err != nil {
		b.ProvisionErrors.Add(1)
		return
	}
	b.ProvisionedBytes.Add(bytes)
}

// RecordMap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMap(index int, bytes int64, duration time.Duration, err error) {
	b.MapCount.Add(1)
	if err != nil {
		b.MapErrors.Add(1)
		return
	}
	b.MappedBytes.Add(bytes)
}

// RecordHold implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHold(duration time.Duration) {
	b.HoldNanos.Add(duration.Nanoseconds())
}

// RecordUnmap implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUnmap(index int, duration time.Duration, err error) {
	b.UnmapCount.Add(1)
	if err != nil {
		b.UnmapErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(index int, duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ProvisionCount:   b.ProvisionCount.Load(),
		ProvisionErrors:  b.ProvisionErrors.Load(),
		ProvisionedBytes: b.ProvisionedBytes.Load(),
		MapCount:         b.MapCount.Load(),
		MapErrors:        b.MapErrors.Load(),
		MappedBytes:      b.MappedBytes.Load(),
		Hold:             time.Duration(b.HoldNanos.Load()),
		UnmapCount:       b.UnmapCount.Load(),
		UnmapErrors:      b.UnmapErrors.Load(),
		DeleteCount:      b.DeleteCount.Load(),
		DeleteErrors:     b.DeleteErrors.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	ProvisionCount   int64
	ProvisionErrors  int64
	ProvisionedBytes int64
	MapCount         int64
	MapErrors        int64
	MappedBytes      int64
	Hold             time.Duration
	UnmapCount       int64
	UnmapErrors      int64
	DeleteCount      int64
	DeleteErrors     int64
}

// LogValue implements slog.LogValuer.
func (s BasicMetricsStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("provisioned", s.ProvisionCount-s.ProvisionErrors),
		slog.Int64("provisioned_bytes", s.ProvisionedBytes),
		slog.Int64("mapped", s.MapCount-s.MapErrors),
		slog.Int64("mapped_bytes", s.MappedBytes),
		slog.Duration("hold", s.Hold),
		slog.Int64("unmapped", s.UnmapCount-s.UnmapErrors),
		slog.Int64("deleted", s.DeleteCount-s.DeleteErrors),
		slog.Int64("errors", s.ProvisionErrors+s.MapErrors+s.UnmapErrors+s.DeleteErrors),
	)
}
