package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"go.uber.org/zap"

	"github.com/osint-pipeline/investigator/internal/cache"
	"github.com/osint-pipeline/investigator/internal/config"
	"github.com/osint-pipeline/investigator/internal/connector"
	"github.com/osint-pipeline/investigator/internal/coordinator"
	"github.com/osint-pipeline/investigator/internal/llm"
	"github.com/osint-pipeline/investigator/internal/logging"
	"github.com/osint-pipeline/investigator/internal/matcher"
	"github.com/osint-pipeline/investigator/internal/parser"
	"github.com/osint-pipeline/investigator/internal/progress"
	"github.com/osint-pipeline/investigator/internal/ratelimit"
	"github.com/osint-pipeline/investigator/internal/report"
	"github.com/osint-pipeline/investigator/internal/scheduler"
	"github.com/osint-pipeline/investigator/internal/store"
	"github.com/osint-pipeline/investigator/internal/store/retention"
	"github.com/osint-pipeline/investigator/internal/telemetry"
)

func main() {
	bootLogger, _ := logging.New("development")
	defer bootLogger.Sync()

	cfg, err := config.Load()
	if err != nil {
		bootLogger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		bootLogger.Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	registry := connector.BuildDefaultRegistry(connector.CredentialSet{})
	limiter := ratelimit.New(ratelimit.Config{
		DefaultPerHour: cfg.RateLimitDefaultPerHour,
		BackoffBase:    time.Duration(cfg.BackoffBaseMs) * time.Millisecond,
		BackoffFactor:  cfg.BackoffFactor,
		BackoffCap:     time.Duration(cfg.BackoffCapMs) * time.Millisecond,
		BackoffJitter:  cfg.BackoffJitter,
	})
	for _, c := range registry.All() {
		limiter.SetBudget(c.Name(), c.RateLimitPerHour())
	}
	for name, err := range registry.ValidateAll(context.Background()) {
		sugar.Warnw("connector failed credential validation, leaving registered", "connector", name, "error", err)
	}
	tel := telemetry.New()

	resultCache := cache.New(&cache.Options{
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
		OnLookup:   tel.ObserveCache,
	})

	var extractor parser.TextExtractor = llm.NullProvider{}
	var narrative report.NarrativeProvider = llm.NullProvider{}
	if cfg.LLMProvider != "none" && cfg.LLMAPIKey != "" {
		g := genkit.Init(
			context.Background(),
			genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.LLMAPIKey}),
			genkit.WithDefaultModel(cfg.LLMModel),
		)
		p := llm.New(g, cfg.LLMModel, logger)
		extractor = p
		narrative = p
	}

	hub := progress.NewHub()

	schedulerCfg := scheduler.DefaultConfig()
	schedulerCfg.MaxConcurrency = cfg.MaxConcurrentQueriesPerInvestigation
	schedulerCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	schedulerCfg.RetryBase = time.Duration(cfg.BackoffBaseMs) * time.Millisecond
	schedulerCfg.RetryFactor = cfg.BackoffFactor
	schedulerCfg.RetryCap = time.Duration(cfg.BackoffCapMs) * time.Millisecond
	schedulerCfg.RetryJitter = cfg.BackoffJitter

	coord := coordinator.New(coordinator.Config{
		Registry:                 registry,
		Limiter:                  limiter,
		Cache:                    resultCache,
		Scheduler:                schedulerCfg,
		MatcherWeights:           matcher.DefaultWeights(),
		TextExtractor:            extractor,
		Narrative:                narrative,
		Hub:                      hub,
		Telemetry:                tel,
		MaxInvestigationDuration: cfg.MaxInvestigationDuration,
	})

	sqliteStore, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path:         cfg.StorePath,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}, logger)
	if err != nil {
		sugar.Fatalw("failed to open investigation store", "error", err)
	}
	defer sqliteStore.Close()

	retentionScheduler := retention.New(sqliteStore, retention.Config{Schedule: cfg.RetentionCron}, logger)
	retentionCtx, stopRetention := context.WithCancel(context.Background())
	if err := retentionScheduler.Start(retentionCtx); err != nil {
		sugar.Fatalw("failed to start retention scheduler", "error", err)
	}
	defer stopRetention()

	srv := NewServer(coord, sqliteStore, hub, tel)

	httpServer := &http.Server{Addr: ":" + getEnv("HTTP_PORT", "8080"), Handler: srv.router}
	go func() {
		sugar.Infow(logging.TagDiscovery+" apiserver listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("apiserver failed", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	sugar.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("apiserver shutdown error", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
