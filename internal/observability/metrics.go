// Package observability wires OpenTelemetry metrics for devpulse and
// exposes them in Prometheus format.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

const (
	meterName = "github.com/dsablic/devpulse"

	metricUpstreamRequests = "devpulse.upstream.requests"
	metricUpstreamDuration = "devpulse.upstream.duration.seconds"
	metricLocatorStrategy  = "devpulse.locator.strategy"
	metricCommitsAnalyzed  = "devpulse.commits.analyzed"
	metricCacheHits        = "devpulse.cache.hits"
	metricCacheMisses      = "devpulse.cache.misses"

	attrOp       = "op"
	attrStatus   = "status"
	attrStrategy = "strategy"
	attrOutcome  = "outcome"
	attrMode     = "mode"
)

// Status values for upstream requests.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusTimeout  = "timeout"
	StatusNotFound = "not_found"
)

// Modes for analysed commits.
const (
	ModeReal     = "real"
	ModeEstimate = "estimate"
	ModeSkipped  = "skipped"
)

var durationBucketBoundaries = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 25, 30}

// Metrics holds the engine's instruments. A nil *Metrics records nothing.
type Metrics struct {
	upstreamRequests metric.Int64Counter
	upstreamDuration metric.Float64Histogram
	locatorStrategy  metric.Int64Counter
	commitsAnalyzed  metric.Int64Counter
}

// NewMetrics creates the instruments from mt.
func NewMetrics(mt metric.Meter) (*Metrics, error) {
	requests, err := mt.Int64Counter(metricUpstreamRequests,
		metric.WithDescription("Upstream source-control API calls"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUpstreamRequests, err)
	}

	duration, err := mt.Float64Histogram(metricUpstreamDuration,
		metric.WithDescription("Upstream call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUpstreamDuration, err)
	}

	strategy, err := mt.Int64Counter(metricLocatorStrategy,
		metric.WithDescription("Commit discovery strategy attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLocatorStrategy, err)
	}

	analyzed, err := mt.Int64Counter(metricCommitsAnalyzed,
		metric.WithDescription("Commits folded into developer statistics by mode"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsAnalyzed, err)
	}

	return &Metrics{
		upstreamRequests: requests,
		upstreamDuration: duration,
		locatorStrategy:  strategy,
		commitsAnalyzed:  analyzed,
	}, nil
}

// Noop returns Metrics backed by a no-op meter.
func Noop() *Metrics {
	m, err := NewMetrics(noopmetric.NewMeterProvider().Meter(meterName))
	if err != nil {
		return nil
	}
	return m
}

// RecordUpstream records one upstream call.
func (m *Metrics) RecordUpstream(ctx context.Context, op, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)
	m.upstreamRequests.Add(ctx, 1, attrs)
	m.upstreamDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordStrategy records the outcome of one discovery strategy attempt.
func (m *Metrics) RecordStrategy(ctx context.Context, strategy, outcome string) {
	if m == nil {
		return
	}
	m.locatorStrategy.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStrategy, strategy),
		attribute.String(attrOutcome, outcome),
	))
}

// RecordAnalyzed adds n commits processed in mode.
func (m *Metrics) RecordAnalyzed(ctx context.Context, mode string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.commitsAnalyzed.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrMode, mode)))
}

// CacheStatsFunc reports cumulative cache hits and misses.
type CacheStatsFunc func() (hits, misses int64)

// RegisterCacheMetrics exposes cache hit and miss counts as observable
// counters read from stats on every collection.
func RegisterCacheMetrics(mt metric.Meter, stats CacheStatsFunc) error {
	hits, err := mt.Int64ObservableCounter(metricCacheHits,
		metric.WithDescription("Result cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", metricCacheHits, err)
	}

	misses, err := mt.Int64ObservableCounter(metricCacheMisses,
		metric.WithDescription("Result cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", metricCacheMisses, err)
	}

	_, err = mt.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		h, m := stats()
		obs.ObserveInt64(hits, h)
		obs.ObserveInt64(misses, m)
		return nil
	}, hits, misses)
	if err != nil {
		return fmt.Errorf("register cache metrics callback: %w", err)
	}
	return nil
}
