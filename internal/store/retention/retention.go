// Package retention prunes investigations past their own retention window,
// adapted from the teacher pack's evidence.retention scheduler/pruner
// (mercator-hq-jupiter's pkg/evidence/retention): a cron-driven Scheduler
// wrapping a Pruner. Unlike that original, which prunes every record
// against one global RetentionDays, pruning here is per-investigation —
// each investigation carries its own Constraints.RetentionDays (§6.1,
// 1-365 days) from submission, so store.SQLiteStore.DeleteOlderThan
// evaluates the cutoff per row rather than globally.
package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Pruner is the minimal surface retention needs from a store backend.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls when and how pruning runs.
type Config struct {
	// Schedule is a standard 5-field cron expression. Empty disables
	// scheduled pruning.
	Schedule string
}

// DefaultConfig prunes once a day at 03:00.
func DefaultConfig() Config {
	return Config{Schedule: "0 3 * * *"}
}

// Scheduler runs Pruner.DeleteOlderThan on Config.Schedule until stopped
// or its context is cancelled.
type Scheduler struct {
	pruner  Pruner
	config  Config
	cron    *cron.Cron
	logger  *zap.SugaredLogger
	mu      sync.Mutex
	running bool
}

// New builds a Scheduler. It does not start running until Start is called.
// logger may be nil, in which case a no-op logger is used.
func New(pruner Pruner, config Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{pruner: pruner, config: config, cron: cron.New(), logger: logger.Sugar()}
}

// Start validates the configured cron expression and begins scheduled
// pruning. If Config.Schedule is empty, Start is a no-op. The scheduler
// stops itself when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("retention: no prune schedule configured, scheduler disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.config.Schedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.runPrune(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule retention pruning: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Infow("retention: scheduler started", "schedule", s.config.Schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runPrune(ctx context.Context) {
	deleted, err := s.pruner.DeleteOlderThan(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Errorw("retention: prune cycle failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Infow("retention: prune cycle deleted investigations", "count", deleted)
	}
}

// Stop halts the cron scheduler and waits for any in-flight prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil || !s.running {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false
	s.logger.Info("retention: scheduler stopped")
}

// IsRunning reports whether the scheduler has an active cron loop.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled prune time, or nil if the scheduler
// was never started.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
