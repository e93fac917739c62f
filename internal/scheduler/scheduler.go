// Package scheduler is C4: it fans a query plan out to connectors with a
// bounded concurrency cap, a retry policy for transient failures, and a
// progress event after every query completes. Concurrency is structured
// with golang.org/x/sync/errgroup and golang.org/x/sync/semaphore rather
// than a hand-rolled worker pool, following the pack's general preference
// for the x/sync primitives over ad-hoc goroutine bookkeeping.
package scheduler

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/osint-pipeline/investigator/internal/cache"
	"github.com/osint-pipeline/investigator/internal/connector"
	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
	"github.com/osint-pipeline/investigator/internal/ratelimit"
	"github.com/osint-pipeline/investigator/internal/telemetry"
)

// Outcome classifies how one query's fetch concluded.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeRetriedThenSuccess Outcome = "retried_then_success"
	OutcomeTerminalFailure    Outcome = "terminal_failure"
)

// QueryResult is the per-query record the scheduler produces.
type QueryResult struct {
	Query     models.Query
	Results   []models.RawResult
	Outcome   Outcome
	Attempts  int
	Err       error
	Connector string
}

// Config tunes the scheduler's concurrency cap and retry policy.
type Config struct {
	MaxConcurrency   int
	RetryBase        time.Duration
	RetryFactor      float64
	RetryCap         time.Duration
	RetryMaxAttempts int
	RetryJitter      float64

	// Telemetry, if set, receives per-fetch outcome/latency and rate-limit
	// backoff observations.
	Telemetry *telemetry.Collector
}

// DefaultConfig matches the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:   16,
		RetryBase:        500 * time.Millisecond,
		RetryFactor:      2,
		RetryCap:         30 * time.Second,
		RetryMaxAttempts: 3,
		RetryJitter:      0.2,
	}
}

// ProgressFunc is called after every query completes, successfully or
// not. It must not block for long; the scheduler does not buffer calls.
type ProgressFunc func(QueryResult)

// Scheduler is C4.
type Scheduler struct {
	cfg         Config
	registry    *connector.Registry
	limiter     *ratelimit.Controller
	resultCache *cache.Cache
}

// New builds a Scheduler wired to the given connector registry, rate
// limiter, and result cache (C1, C2, C3 respectively).
func New(cfg Config, registry *connector.Registry, limiter *ratelimit.Controller, resultCache *cache.Cache) *Scheduler {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	return &Scheduler{cfg: cfg, registry: registry, limiter: limiter, resultCache: resultCache}
}

// Run drains plan, fanning queries out to their target connectors with
// bounded concurrency. Queries are drained in priority order; within a
// priority band queries round-robin across connectors so no single source
// starves the others. If ctx is cancelled, in-flight queries receive the
// cancellation and queued queries are dropped — Run returns whatever
// results it has rather than blocking for the whole plan.
func (s *Scheduler) Run(ctx context.Context, plan []models.Query, onProgress ProgressFunc) []QueryResult {
	ordered := orderByPriorityRoundRobin(plan)

	sem := semaphore.NewWeighted(int64(s.cfg.MaxConcurrency))
	var mu sync.Mutex
	var out []QueryResult

	g := new(errgroup.Group) // outcomes are collected regardless of any single query's error
	for _, q := range ordered {
		q := q
		if err := sem.Acquire(ctx, 1); err != nil {
			// ctx cancelled while waiting for a slot: treat remaining
			// queued queries as dropped per the cancellation contract.
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			res := s.runOne(ctx, q)
			mu.Lock()
			out = append(out, res)
			mu.Unlock()
			if onProgress != nil {
				onProgress(res)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Scheduler) runOne(ctx context.Context, q models.Query) QueryResult {
	started := time.Now()
	var lastErr error
	for _, connName := range q.TargetConnectors {
		conn, ok := s.registry.Get(connName)
		if !ok {
			continue
		}

		attempts := 0
		for {
			attempts++
			if err := s.limiter.Acquire(ctx, connName); err != nil {
				lastErr = err
				break
			}

			fingerprint := string(q.Fingerprint(connName))
			rawResults, fetchErr := s.fetchWithCache(ctx, fingerprint, conn, q)
			if fetchErr == nil {
				s.limiter.Recovered(connName)
				outcome := OutcomeSuccess
				if attempts > 1 {
					outcome = OutcomeRetriedThenSuccess
				}
				s.observeFetch(connName, outcome, started)
				return QueryResult{Query: q, Results: rawResults, Outcome: outcome, Attempts: attempts, Connector: connName}
			}

			lastErr = fetchErr
			kind := perr.KindOf(fetchErr)
			if kind == perr.KindRateLimited {
				backoff := s.limiter.Throttled(connName, 0)
				if s.cfg.Telemetry != nil {
					s.cfg.Telemetry.ObserveRateLimit(connName, backoff)
				}
				break // defer to C2's backoff window on the next plan round
			}
			if !perr.Transient(kind) || attempts >= s.cfg.RetryMaxAttempts {
				break
			}
			wait := backoffWait(s.cfg, attempts)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				lastErr = perr.New(perr.KindTimeout, "scheduler.runOne", ctx.Err())
			}
			if ctx.Err() != nil {
				break
			}
		}
		if lastErr == nil {
			break
		}
	}
	if len(q.TargetConnectors) > 0 {
		s.observeFetch(q.TargetConnectors[0], OutcomeTerminalFailure, started)
	}
	return QueryResult{Query: q, Outcome: OutcomeTerminalFailure, Err: lastErr, Attempts: 1}
}

func (s *Scheduler) observeFetch(connName string, outcome Outcome, started time.Time) {
	if s.cfg.Telemetry != nil {
		s.cfg.Telemetry.ObserveFetch(connName, string(outcome), time.Since(started))
	}
}

// fetchWithCache adapts the single-RawResult cache.Cache.Fetch contract to
// connectors that can return multiple results per query: only the first
// result is coalesced through the cache; subsequent results in the same
// response ride along uncached, which is acceptable since they share the
// same fingerprint and upstream call.
func (s *Scheduler) fetchWithCache(ctx context.Context, fingerprint string, conn connector.SourceConnector, q models.Query) ([]models.RawResult, error) {
	var all []models.RawResult
	first, err := s.resultCache.Fetch(ctx, fingerprint, func(fctx context.Context) (models.RawResult, error) {
		results, err := conn.Search(fctx, q)
		if err != nil {
			return models.RawResult{}, err
		}
		if len(results) == 0 {
			return models.RawResult{QueryID: q.QueryID, SourceName: conn.Name()}, nil
		}
		all = results
		return results[0], nil
	})
	if err != nil {
		return nil, err
	}
	if len(all) > 0 {
		return all, nil
	}
	return []models.RawResult{first}, nil
}

func backoffWait(cfg Config, attempt int) time.Duration {
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	base := time.Duration(float64(cfg.RetryBase) * math.Pow(cfg.RetryFactor, float64(shift)))
	if base > cfg.RetryCap {
		base = cfg.RetryCap
	}
	return base
}

// orderByPriorityRoundRobin sorts queries into descending priority bands
// and, within a band, interleaves connectors round-robin so one slow
// connector can't starve the others' queries from being attempted.
func orderByPriorityRoundRobin(plan []models.Query) []models.Query {
	byPriority := make(map[int][]models.Query)
	var priorities []int
	for _, q := range plan {
		if _, seen := byPriority[q.Priority]; !seen {
			priorities = append(priorities, q.Priority)
		}
		byPriority[q.Priority] = append(byPriority[q.Priority], q)
	}
	sortDesc(priorities)

	var out []models.Query
	for _, p := range priorities {
		out = append(out, roundRobinByConnector(byPriority[p])...)
	}
	return out
}

func roundRobinByConnector(queries []models.Query) []models.Query {
	byConnector := make(map[string][]models.Query)
	var order []string
	for _, q := range queries {
		key := ""
		if len(q.TargetConnectors) > 0 {
			key = q.TargetConnectors[0]
		}
		if _, seen := byConnector[key]; !seen {
			order = append(order, key)
		}
		byConnector[key] = append(byConnector[key], q)
	}

	var out []models.Query
	for {
		progressed := false
		for _, key := range order {
			if len(byConnector[key]) == 0 {
				continue
			}
			out = append(out, byConnector[key][0])
			byConnector[key] = byConnector[key][1:]
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return out
}

func sortDesc(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] < xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
