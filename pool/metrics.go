package pool

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type acquireResult string

const (
	resultHit   acquireResult = "hit"
	resultMiss  acquireResult = "miss"
	resultError acquireResult = "error"
)

// poolMetrics records pool activity. Recording is best-effort: if any
// instrument fails to build, the affected metric is silently skipped.
type poolMetrics struct {
	acquires      metric.Int64Counter
	evictions     metric.Int64Counter
	buildDuration metric.Float64Histogram
}

func newPoolMetrics(meter metric.Meter, stats func() Stats) *poolMetrics {
	m := &poolMetrics{}

	m.acquires, _ = meter.Int64Counter(
		"llm.pool.acquires",
		metric.WithDescription("Total acquire calls by result"),
		metric.WithUnit("{call}"),
	)
	m.evictions, _ = meter.Int64Counter(
		"llm.pool.evictions",
		metric.WithDescription("Total evicted entries by reason"),
		metric.WithUnit("{entry}"),
	)
	m.buildDuration, _ = meter.Float64Histogram(
		"llm.pool.build.duration_ms",
		metric.WithDescription("Client construction duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	entries, err := meter.Int64ObservableGauge(
		"llm.pool.entries",
		metric.WithDescription("Cached entries by state"),
		metric.WithUnit("{entry}"),
	)
	if err == nil {
		meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			s := stats()
			o.ObserveInt64(entries, int64(s.Active),
				metric.WithAttributes(attribute.String("state", "active")))
			o.ObserveInt64(entries, int64(s.Idle),
				metric.WithAttributes(attribute.String("state", "idle")))
			return nil
		}, entries)
	}

	return m
}

func (m *poolMetrics) recordAcquire(ctx context.Context, result acquireResult) {
	if m.acquires == nil {
		return
	}
	m.acquires.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(result))))
}

func (m *poolMetrics) recordEviction(ctx context.Context, reason evictReason) {
	if m.evictions == nil {
		return
	}
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
}

func (m *poolMetrics) recordBuild(ctx context.Context, d time.Duration) {
	if m.buildDuration == nil {
		return
	}
	m.buildDuration.Record(ctx, float64(d.Milliseconds()))
}
