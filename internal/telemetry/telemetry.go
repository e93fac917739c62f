// Package telemetry is the pipeline's Prometheus metrics surface,
// grounded on mercator-hq-jupiter's pkg/telemetry/metrics.Collector (a
// namespaced registry holding one metrics struct per subsystem) and
// tareqmamari-cloud-logs-mcp's internal/metrics (promauto-style counter
// and histogram construction). Every component that calls into Collector
// does so with a direct method call, not a generic tag-based recorder, so
// call sites stay type-checked.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "osint_pipeline"

// Collector owns a dedicated Prometheus registry (never the global
// DefaultRegisterer) so multiple Collectors — one per test, one per
// Coordinator in a process running several investigations — never
// collide on metric registration.
type Collector struct {
	registry *prometheus.Registry

	fetchTotal       *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	rateLimitHits    *prometheus.CounterVec
	rateLimitBackoff *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	entitiesResolved prometheus.Counter
	ambiguousMatches prometheus.Counter
	investigations   *prometheus.CounterVec
	progressDropped  prometheus.Counter
}

// New builds a Collector with its own registry.
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Total scheduled queries fetched, by connector and final outcome.",
		}, []string{"connector", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Connector fetch latency, including retries.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"connector"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total times a connector was throttled by its per-hour budget.",
		}, []string{"connector"}),
		rateLimitBackoff: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_limit_backoff_seconds",
			Help:      "Backoff duration waited before a retried fetch.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"connector"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total fetch requests served from cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total fetch requests that missed cache.",
		}),
		entitiesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_resolved_total",
			Help:      "Total entities resolved across all investigations.",
		}),
		ambiguousMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ambiguous_matches_total",
			Help:      "Total candidate pairs the resolver left ambiguous.",
		}),
		investigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "investigations_total",
			Help:      "Total investigations, by terminal status.",
		}, []string{"status"}),
		progressDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_events_dropped_total",
			Help:      "Total non-critical progress events dropped from a full subscriber channel.",
		}),
	}

	registry.MustRegister(
		c.fetchTotal, c.fetchDuration, c.rateLimitHits, c.rateLimitBackoff,
		c.cacheHits, c.cacheMisses, c.entitiesResolved, c.ambiguousMatches,
		c.investigations, c.progressDropped,
	)
	return c
}

// Handler exposes the registry in Prometheus exposition format, meant to
// be mounted at "/metrics".
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}

// ObserveFetch records one query's final fetch outcome and its latency
// across all of its attempts.
func (c *Collector) ObserveFetch(connector, outcome string, duration time.Duration) {
	c.fetchTotal.WithLabelValues(connector, outcome).Inc()
	c.fetchDuration.WithLabelValues(connector).Observe(duration.Seconds())
}

// ObserveRateLimit records a throttle event and the backoff waited before
// the retry that followed it.
func (c *Collector) ObserveRateLimit(connector string, backoff time.Duration) {
	c.rateLimitHits.WithLabelValues(connector).Inc()
	c.rateLimitBackoff.WithLabelValues(connector).Observe(backoff.Seconds())
}

// ObserveCache records a single cache lookup outcome.
func (c *Collector) ObserveCache(hit bool) {
	if hit {
		c.cacheHits.Inc()
		return
	}
	c.cacheMisses.Inc()
}

// ObserveResolution records one resolver pass's output counts.
func (c *Collector) ObserveResolution(resolvedCount, ambiguousCount int) {
	c.entitiesResolved.Add(float64(resolvedCount))
	c.ambiguousMatches.Add(float64(ambiguousCount))
}

// ObserveInvestigationTerminal records one investigation reaching a
// terminal status.
func (c *Collector) ObserveInvestigationTerminal(status string) {
	c.investigations.WithLabelValues(status).Inc()
}

// ObserveProgressDropped records n best-effort progress events that were
// dropped because a subscriber's channel was full; the hub counts drops
// per investigation, so this is reported once at feed teardown.
func (c *Collector) ObserveProgressDropped(n int) {
	if n > 0 {
		c.progressDropped.Add(float64(n))
	}
}
