// Package cache is C3: a fingerprint-keyed cache of RawResults with TTL
// expiry, a mandatory size cap with LRU eviction, and single-flight
// coalescing so concurrent requests for the same fingerprint trigger at
// most one fetch. Structured after the teacher's SiteContextManager
// (internal/driven/context_manager.go): a mutex-guarded map, an
// options struct with sane defaults, and a ticker-driven cleanup routine
// stopped via a stopChan.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/osint-pipeline/investigator/internal/models"
)

// entry is one cached RawResult plus the bookkeeping needed for TTL
// expiry and LRU eviction.
type entry struct {
	result     models.RawResult
	storedAt   time.Time
	lastUsedAt time.Time
}

// Store is the optional external mirror a Cache may consult on miss and
// populate on fill. A mirror failure degrades silently to a regular
// fetch — it must never fail the calling request.
type Store interface {
	Get(ctx context.Context, fingerprint string) (models.RawResult, bool, error)
	Put(ctx context.Context, fingerprint string, result models.RawResult, ttl time.Duration) error
}

// Options configures a Cache.
type Options struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
	Mirror          Store // optional, nil disables the external mirror

	// OnLookup, if set, is called with the outcome of every local lookup,
	// for metrics. It must not block.
	OnLookup func(hit bool)
}

// DefaultOptions returns the pipeline's documented cache defaults.
func DefaultOptions() *Options {
	return &Options{
		TTL:             1 * time.Hour,
		MaxEntries:      10000,
		CleanupInterval: 10 * time.Minute,
	}
}

// Cache is the process-wide fetch-result cache (C3).
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	ttl      time.Duration
	maxSize  int
	mirror   Store
	onLookup func(hit bool)
	group    singleflight.Group
	ticker   *time.Ticker
	stopChan chan struct{}

	hits   int64
	misses int64
}

// New builds a Cache. A nil opts falls back to DefaultOptions.
func New(opts *Options) *Cache {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultOptions().MaxEntries
	}
	c := &Cache{
		entries:  make(map[string]*entry),
		ttl:      opts.TTL,
		maxSize:  opts.MaxEntries,
		mirror:   opts.Mirror,
		onLookup: opts.OnLookup,
		stopChan: make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		c.startCleanupRoutine(opts.CleanupInterval)
	}
	return c
}

func (c *Cache) startCleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	c.ticker = ticker
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopChan:
				return
			}
		}
	}()
}

// Stop halts the cleanup routine. Safe to call once.
func (c *Cache) Stop() {
	if c.ticker != nil {
		close(c.stopChan)
		c.ticker = nil
	}
}

// Fetch returns the cached RawResult for fingerprint if present and
// unexpired (consulting the mirror on local miss), otherwise calls fn
// exactly once across any concurrent callers sharing the fingerprint and
// caches its result.
func (c *Cache) Fetch(ctx context.Context, fingerprint string, fn func(context.Context) (models.RawResult, error)) (models.RawResult, error) {
	if res, ok := c.getLocal(fingerprint); ok {
		return res, nil
	}

	if c.mirror != nil {
		if res, ok, err := c.mirror.Get(ctx, fingerprint); err == nil && ok {
			c.putLocal(fingerprint, res)
			return res, nil
		}
		// Mirror error or miss: fall through to a live fetch. Mirror
		// availability never blocks the pipeline.
	}

	v, err, _ := c.group.Do(fingerprint, func() (interface{}, error) {
		res, err := fn(ctx)
		if err != nil {
			return models.RawResult{}, err
		}
		c.putLocal(fingerprint, res)
		if c.mirror != nil {
			_ = c.mirror.Put(ctx, fingerprint, res, c.ttl)
		}
		return res, nil
	})
	if err != nil {
		return models.RawResult{}, err
	}
	return v.(models.RawResult), nil
}

func (c *Cache) getLocal(fingerprint string) (models.RawResult, bool) {
	res, hit := c.lookupLocked(fingerprint)
	if c.onLookup != nil {
		c.onLookup(hit)
	}
	return res, hit
}

func (c *Cache) lookupLocked(fingerprint string) (models.RawResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fingerprint]
	if !ok {
		c.misses++
		return models.RawResult{}, false
	}
	if c.ttl > 0 && time.Since(e.storedAt) > c.ttl {
		delete(c.entries, fingerprint)
		c.misses++
		return models.RawResult{}, false
	}
	e.lastUsedAt = time.Now()
	c.hits++
	return e.result, true
}

func (c *Cache) putLocal(fingerprint string, result models.RawResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		if _, exists := c.entries[fingerprint]; !exists {
			c.evictLRULocked()
		}
	}
	now := time.Now()
	c.entries[fingerprint] = &entry{result: result, storedAt: now, lastUsedAt: now}
}

// evictLRULocked removes the single least-recently-used entry. Caller
// must hold c.mu.
func (c *Cache) evictLRULocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.lastUsedAt.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.lastUsedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func (c *Cache) evictExpired() {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
}

// Invalidate removes one fingerprint's cached entry, if any.
func (c *Cache) Invalidate(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fingerprint)
}

// Stats reports cache introspection for telemetry.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]interface{}{
		"entries": len(c.entries),
		"hits":    c.hits,
		"misses":  c.misses,
		"max":     c.maxSize,
	}
}
