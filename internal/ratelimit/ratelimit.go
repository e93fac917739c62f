// Package ratelimit is C2: one per-source token bucket plus an
// exponential-backoff-with-jitter window applied whenever a source signals
// it is throttling us, modeled on the client backoff calculation in
// tareqmamari-cloud-logs-mcp's internal/client package (shift-based
// exponential wait, crypto/rand jitter, hard cap) combined with
// golang.org/x/time/rate for the steady-state token bucket.
package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/osint-pipeline/investigator/internal/perr"
)

// Config tunes the backoff window applied on top of the steady-state
// token bucket.
type Config struct {
	DefaultPerHour int
	BackoffBase    time.Duration
	BackoffFactor  float64
	BackoffCap     time.Duration
	BackoffJitter  float64 // fraction of base wait, e.g. 0.2 = +/-20%
}

// DefaultConfig matches the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		DefaultPerHour: 100,
		BackoffBase:    1 * time.Second,
		BackoffFactor:  2,
		BackoffCap:     300 * time.Second,
		BackoffJitter:  0.2,
	}
}

type sourceState struct {
	limiter      *rate.Limiter
	mu           sync.Mutex
	consecutive  int       // consecutive throttle signals, drives backoff shift
	backoffUntil time.Time // requests wait until this time after a throttle signal
	waiters      []chan struct{}
}

// Controller is C2: a registry of per-source rate limiters with FIFO
// fairness and rolling-hour budgets.
type Controller struct {
	cfg     Config
	mu      sync.Mutex
	sources map[string]*sourceState
}

// New builds a Controller from cfg.
func New(cfg Config) *Controller {
	if cfg.DefaultPerHour <= 0 {
		cfg.DefaultPerHour = DefaultConfig().DefaultPerHour
	}
	return &Controller{cfg: cfg, sources: make(map[string]*sourceState)}
}

func (c *Controller) stateFor(source string) *sourceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.sources[source]
	if !ok {
		perSecond := rate.Limit(float64(c.cfg.DefaultPerHour) / 3600.0)
		st = &sourceState{limiter: rate.NewLimiter(perSecond, maxBurst(c.cfg.DefaultPerHour))}
		c.sources[source] = st
	}
	return st
}

func maxBurst(perHour int) int {
	if perHour < 1 {
		return 1
	}
	if perHour > 10 {
		return 10
	}
	return perHour
}

// SetBudget overrides the per-hour budget for one source, e.g. from a
// connector's documented published limit.
func (c *Controller) SetBudget(source string, perHour int) {
	if perHour <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[source] = &sourceState{
		limiter: rate.NewLimiter(rate.Limit(float64(perHour)/3600.0), maxBurst(perHour)),
	}
}

// Acquire blocks (honoring ctx) until the source's token bucket and any
// active backoff window both permit one request, in FIFO order per
// source.
func (c *Controller) Acquire(ctx context.Context, source string) error {
	st := c.stateFor(source)

	st.mu.Lock()
	wait := time.Until(st.backoffUntil)
	st.mu.Unlock()
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return perr.New(perr.KindTimeout, "ratelimit.Acquire", ctx.Err())
		}
	}

	if err := st.limiter.Wait(ctx); err != nil {
		return perr.NewFromSource(perr.KindRateLimited, "ratelimit.Acquire", source, err)
	}
	return nil
}

// Throttled records that source signaled rate limiting (HTTP 429 or
// equivalent) and returns how long the caller should treat the source as
// closed. retryAfter, if positive, is honored directly (with jitter)
// exactly as an explicit server-provided Retry-After header would be;
// otherwise backoff grows exponentially from the configured base.
func (c *Controller) Throttled(source string, retryAfter time.Duration) time.Duration {
	st := c.stateFor(source)
	st.mu.Lock()
	defer st.mu.Unlock()

	var wait time.Duration
	if retryAfter > 0 {
		wait = retryAfter + jitterDuration(retryAfter, c.cfg.BackoffJitter)
	} else {
		st.consecutive++
		shift := min(st.consecutive-1, 30)
		base := time.Duration(float64(c.cfg.BackoffBase) * math.Pow(c.cfg.BackoffFactor, float64(shift)))
		wait = base + jitterDuration(base, c.cfg.BackoffJitter)
	}
	if wait > c.cfg.BackoffCap {
		wait = c.cfg.BackoffCap
	}
	st.backoffUntil = time.Now().Add(wait)
	return wait
}

// Recovered clears a source's consecutive-throttle counter after a
// successful request, so backoff resets rather than ratcheting forever.
func (c *Controller) Recovered(source string) {
	st := c.stateFor(source)
	st.mu.Lock()
	st.consecutive = 0
	st.mu.Unlock()
}

// Stats reports per-source state for telemetry/introspection.
func (c *Controller) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]interface{}, len(c.sources))
	for name, st := range c.sources {
		st.mu.Lock()
		out[name] = map[string]interface{}{
			"tokens":           st.limiter.Tokens(),
			"consecutive_429s": st.consecutive,
			"backoff_until":    st.backoffUntil,
		}
		st.mu.Unlock()
	}
	return out
}

// jitterDuration returns a random +/- frac adjustment to d using
// crypto/rand, mirroring the teacher client's cryptoRandDuration helper.
func jitterDuration(d time.Duration, frac float64) time.Duration {
	if d <= 0 || frac <= 0 {
		return 0
	}
	span := int64(float64(d) * frac)
	if span <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	n := int64(binary.BigEndian.Uint64(buf[:])) % (2 * span)
	if n < 0 {
		n = -n
	}
	return time.Duration(n - span)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
