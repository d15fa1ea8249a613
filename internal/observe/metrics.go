// Package observe provides application-wide observability primitives for
// Grimoire: OpenTelemetry metrics, tracing, and structured-log helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Grimoire metrics.
const meterName = "github.com/MrWong99/grimoire"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// RenderDuration tracks wall-clock latency of a full render call.
	RenderDuration metric.Float64Histogram

	// RenderPasses tracks how many substitution passes a render call took
	// before reaching a fixpoint (or the pass bound).
	RenderPasses metric.Int64Histogram

	// TokensResolved counts resolved tokens. Use with attribute:
	//   attribute.String("class", "primary"|"template")
	TokensResolved metric.Int64Counter

	// TokensEmpty counts tokens that degraded to the empty string.
	TokensEmpty metric.Int64Counter

	// RenderErrors counts advisory render errors (e.g. rejected nesting).
	RenderErrors metric.Int64Counter

	// CacheHits and CacheMisses count result-cache lookups.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// CacheEvictions counts evicted entries. Use with attribute:
	//   attribute.String("reason", "lru"|"ttl"|"invalidation")
	CacheEvictions metric.Int64Counter

	// CacheBytes tracks the cache's current total payload size.
	CacheBytes metric.Int64UpDownCounter

	// TemplatesActive tracks the number of registered templates.
	TemplatesActive metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for the
// render path. Rendering is pure computation, so the buckets skew small.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// passBuckets covers the orchestrator's bounded 1–10 pass range.
var passBuckets = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RenderDuration, err = m.Float64Histogram("grimoire.render.duration",
		metric.WithDescription("Latency of a full prompt render call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RenderPasses, err = m.Int64Histogram("grimoire.render.passes",
		metric.WithDescription("Substitution passes per render call."),
		metric.WithExplicitBucketBoundaries(passBuckets...),
	); err != nil {
		return nil, err
	}

	if met.TokensResolved, err = m.Int64Counter("grimoire.tokens.resolved",
		metric.WithDescription("Total resolved tokens by variable class."),
	); err != nil {
		return nil, err
	}
	if met.TokensEmpty, err = m.Int64Counter("grimoire.tokens.empty",
		metric.WithDescription("Total tokens that resolved to the empty string."),
	); err != nil {
		return nil, err
	}
	if met.RenderErrors, err = m.Int64Counter("grimoire.render.errors",
		metric.WithDescription("Total advisory render errors."),
	); err != nil {
		return nil, err
	}

	if met.CacheHits, err = m.Int64Counter("grimoire.cache.hits",
		metric.WithDescription("Total result-cache hits."),
	); err != nil {
		return nil, err
	}
	if met.CacheMisses, err = m.Int64Counter("grimoire.cache.misses",
		metric.WithDescription("Total result-cache misses."),
	); err != nil {
		return nil, err
	}
	if met.CacheEvictions, err = m.Int64Counter("grimoire.cache.evictions",
		metric.WithDescription("Total result-cache evictions by reason."),
	); err != nil {
		return nil, err
	}
	if met.CacheBytes, err = m.Int64UpDownCounter("grimoire.cache.bytes",
		metric.WithDescription("Current result-cache payload size."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if met.TemplatesActive, err = m.Int64UpDownCounter("grimoire.templates.active",
		metric.WithDescription("Number of registered templates."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCacheLookup records one cache lookup outcome.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if hit {
		m.CacheHits.Add(ctx, 1)
	} else {
		m.CacheMisses.Add(ctx, 1)
	}
}

// RecordEviction records one cache eviction with its reason.
func (m *Metrics) RecordEviction(ctx context.Context, reason string) {
	m.CacheEvictions.Add(ctx, 1, metric.WithAttributes(Attr("reason", reason)))
}
