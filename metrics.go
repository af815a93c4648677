package rsgislib

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
//	    seedCounter      prometheus.Counter
//	    refineHistogram  prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordSeed(k int, duration time.Duration, err error) {
//	    p.seedCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordSeed is called after each seeding operation.
	// k is the requested cluster count, duration is the time taken,
	// err is nil if successful.
	RecordSeed(k int, duration time.Duration, err error)

	// RecordIteration is called after each completed refinement iteration.
	// centroids is the surviving centre count, merges and splits are the
	// refinement actions taken this iteration.
	RecordIteration(iteration, centroids, merges, splits int)

	// RecordRefine is called after each full refinement run.
	// iterations is the number of iterations executed.
	RecordRefine(iterations int, duration time.Duration, err error)

	// RecordLabel is called after each output labelling operation.
	RecordLabel(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSeed(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordIteration(int, int, int, int)     {}
func (NoopMetricsCollector) RecordRefine(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLabel(time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SeedCount        atomic.Int64
	SeedErrors       atomic.Int64
	SeedTotalNanos   atomic.Int64
	IterationCount   atomic.Int64
	MergeCount       atomic.Int64
	SplitCount       atomic.Int64
	RefineCount      atomic.Int64
	RefineErrors     atomic.Int64
	RefineTotalNanos atomic.Int64
	LabelCount       atomic.Int64
	LabelErrors      atomic.Int64
	LabelTotalNanos  atomic.Int64
}

// RecordSeed implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSeed(k int, duration time.Duration, err error) {
	b.SeedCount.Add(1)
	b.SeedTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SeedErrors.Add(1)
	}
}

// RecordIteration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIteration(iteration, centroids, merges, splits int) {
	b.IterationCount.Add(1)
	b.MergeCount.Add(int64(merges))
	b.SplitCount.Add(int64(splits))
}

// RecordRefine implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefine(iterations int, duration time.Duration, err error) {
	b.RefineCount.Add(1)
	b.RefineTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RefineErrors.Add(1)
	}
}

// RecordLabel implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLabel(duration time.Duration, err error) {
	b.LabelCount.Add(1)
	b.LabelTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LabelErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SeedCount:      b.SeedCount.Load(),
		SeedErrors:     b.SeedErrors.Load(),
		SeedAvgNanos:   avgNanos(b.SeedTotalNanos.Load(), b.SeedCount.Load()),
		IterationCount: b.IterationCount.Load(),
		MergeCount:     b.MergeCount.Load(),
		SplitCount:     b.SplitCount.Load(),
		RefineCount:    b.RefineCount.Load(),
		RefineErrors:   b.RefineErrors.Load(),
		RefineAvgNanos: avgNanos(b.RefineTotalNanos.Load(), b.RefineCount.Load()),
		LabelCount:     b.LabelCount.Load(),
		LabelErrors:    b.LabelErrors.Load(),
		LabelAvgNanos:  avgNanos(b.LabelTotalNanos.Load(), b.LabelCount.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SeedCount      int64
	SeedErrors     int64
	SeedAvgNanos   int64
	IterationCount int64
	MergeCount     int64
	SplitCount     int64
	RefineCount    int64
	RefineErrors   int64
	RefineAvgNanos int64
	LabelCount     int64
	LabelErrors    int64
	LabelAvgNanos  int64
}
