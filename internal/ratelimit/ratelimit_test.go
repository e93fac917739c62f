package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osint-pipeline/investigator/internal/perr"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100, cfg.DefaultPerHour)
	assert.Equal(t, 1*time.Second, cfg.BackoffBase)
	assert.Equal(t, 300*time.Second, cfg.BackoffCap)
}

func TestController_AcquireWithinBudget(t *testing.T) {
	c := New(Config{DefaultPerHour: 36000, BackoffBase: time.Millisecond, BackoffFactor: 2, BackoffCap: time.Second, BackoffJitter: 0.2})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Acquire(ctx, "example-source"))
	}
}

func TestController_ThrottledGrowsBackoff(t *testing.T) {
	c := New(Config{DefaultPerHour: 100, BackoffBase: 10 * time.Millisecond, BackoffFactor: 2, BackoffCap: time.Second, BackoffJitter: 0})

	first := c.Throttled("slow-source", 0)
	second := c.Throttled("slow-source", 0)
	assert.Greater(t, second, first)
}

func TestController_ThrottledRespectsCap(t *testing.T) {
	c := New(Config{DefaultPerHour: 100, BackoffBase: time.Second, BackoffFactor: 2, BackoffCap: 5 * time.Second, BackoffJitter: 0})

	var last time.Duration
	for i := 0; i < 10; i++ {
		last = c.Throttled("capped-source", 0)
	}
	assert.LessOrEqual(t, last, 5*time.Second)
}

func TestController_ThrottledHonorsRetryAfter(t *testing.T) {
	c := New(Config{DefaultPerHour: 100, BackoffBase: time.Second, BackoffFactor: 2, BackoffCap: 30 * time.Second, BackoffJitter: 0})
	wait := c.Throttled("explicit-source", 3*time.Second)
	assert.GreaterOrEqual(t, wait, 3*time.Second)
}

func TestController_RecoveredResetsBackoff(t *testing.T) {
	c := New(Config{DefaultPerHour: 100, BackoffBase: 10 * time.Millisecond, BackoffFactor: 2, BackoffCap: time.Second, BackoffJitter: 0})
	c.Throttled("flaky-source", 0)
	c.Throttled("flaky-source", 0)
	c.Recovered("flaky-source")

	wait := c.Throttled("flaky-source", 0)
	assert.Equal(t, 10*time.Millisecond, wait)
}

func TestController_AcquireContextCancelled(t *testing.T) {
	c := New(Config{DefaultPerHour: 1, BackoffBase: time.Second, BackoffFactor: 2, BackoffCap: time.Minute, BackoffJitter: 0})
	c.Throttled("blocked-source", time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Acquire(ctx, "blocked-source")
	require.Error(t, err)
	assert.Equal(t, perr.KindTimeout, perr.KindOf(err))
}

func TestController_Stats(t *testing.T) {
	c := New(DefaultConfig())
	_ = c.Acquire(context.Background(), "stats-source")
	stats := c.Stats()
	require.Contains(t, stats, "stats-source")
}
