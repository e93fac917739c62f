package telemetry

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_ObserveFetchIncrementsByConnectorAndOutcome(t *testing.T) {
	c := New()
	c.ObserveFetch("search-engine", "success", 250*time.Millisecond)
	c.ObserveFetch("search-engine", "success", 100*time.Millisecond)
	c.ObserveFetch("search-engine", "terminal_failure", 50*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.fetchTotal.WithLabelValues("search-engine", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.fetchTotal.WithLabelValues("search-engine", "terminal_failure")))
}

func TestCollector_ObserveRateLimit(t *testing.T) {
	c := New()
	c.ObserveRateLimit("breach-database", 2*time.Second)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.rateLimitHits.WithLabelValues("breach-database")))
}

func TestCollector_ObserveCacheHitAndMiss(t *testing.T) {
	c := New()
	c.ObserveCache(true)
	c.ObserveCache(true)
	c.ObserveCache(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.cacheMisses))
}

func TestCollector_ObserveResolution(t *testing.T) {
	c := New()
	c.ObserveResolution(5, 2)
	c.ObserveResolution(3, 0)

	assert.Equal(t, float64(8), testutil.ToFloat64(c.entitiesResolved))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.ambiguousMatches))
}

func TestCollector_ObserveInvestigationTerminal(t *testing.T) {
	c := New()
	c.ObserveInvestigationTerminal("completed")
	c.ObserveInvestigationTerminal("failed")
	c.ObserveInvestigationTerminal("completed")

	assert.Equal(t, float64(2), testutil.ToFloat64(c.investigations.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.investigations.WithLabelValues("failed")))
}

func TestCollector_ObserveProgressDropped(t *testing.T) {
	c := New()
	c.ObserveProgressDropped(3)
	c.ObserveProgressDropped(0)
	assert.Equal(t, float64(3), testutil.ToFloat64(c.progressDropped))
}

func TestCollector_HandlerServesExpositionFormat(t *testing.T) {
	c := New()
	c.ObserveCache(true)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "osint_pipeline_cache_hits_total")
}
