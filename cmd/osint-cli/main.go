// Command osint-cli runs one investigation end to end from a seed file and
// writes the final investigation record, report included, as JSON to
// stdout or the -out file, mirroring the teacher's cmd/main.go
// shape (flags, config load, component wiring, signal-driven shutdown)
// without the HTTP surface cmd/apiserver adds on top of the same
// coordinator.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/osint-pipeline/investigator/internal/cache"
	"github.com/osint-pipeline/investigator/internal/config"
	"github.com/osint-pipeline/investigator/internal/connector"
	"github.com/osint-pipeline/investigator/internal/coordinator"
	"github.com/osint-pipeline/investigator/internal/llm"
	"github.com/osint-pipeline/investigator/internal/logging"
	"github.com/osint-pipeline/investigator/internal/matcher"
	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/parser"
	"github.com/osint-pipeline/investigator/internal/progress"
	"github.com/osint-pipeline/investigator/internal/ratelimit"
	"github.com/osint-pipeline/investigator/internal/report"
	"github.com/osint-pipeline/investigator/internal/scheduler"
)

func main() {
	seedPath := flag.String("seed", "", "path to a JSON seed input file (§6.1)")
	outPath := flag.String("out", "", "path to write the JSON report to (default: stdout)")
	quiet := flag.Bool("quiet", false, "suppress progress events on stderr")
	flag.Parse()

	bootLogger, _ := logging.New("development")
	defer bootLogger.Sync()

	if *seedPath == "" {
		bootLogger.Fatal("osint-cli: -seed is required")
	}

	seed, err := loadSeed(*seedPath)
	if err != nil {
		bootLogger.Fatal("failed to load seed", zap.Error(err))
	}

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

	coord := buildCoordinator(cfg, seed.InvestigationID, *quiet, logger)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		sugar.Info("osint-cli: received interrupt, cancelling investigation...")
		cancel()
	}()
	defer cancel()

	record := coord.Run(ctx, seed)

	if err := writeReport(*outPath, record); err != nil {
		sugar.Fatalw("failed to write report", "error", err)
	}

	if record.Status != models.StatusCompleted {
		sugar.Infow("osint-cli: investigation ended", "status", record.Status, "partial", record.Partial)
		os.Exit(1)
	}
}

func loadSeed(path string) (models.SeedInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.SeedInput{}, err
	}
	var seed models.SeedInput
	if err := json.Unmarshal(data, &seed); err != nil {
		return models.SeedInput{}, fmt.Errorf("parsing seed file: %w", err)
	}
	if seed.SubmittedAt.IsZero() {
		seed.SubmittedAt = time.Now().UTC()
	}
	// Assign the ID here rather than letting the coordinator generate one,
	// so the progress subscription below watches the right feed.
	if seed.InvestigationID == "" {
		seed.InvestigationID = uuid.NewString()
	}
	return seed, nil
}

func writeReport(path string, record models.InvestigationRecord) error {
	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err := os.Stdout.Write(append(out, '\n'))
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// buildCoordinator wires the same component set cmd/apiserver does, minus
// the store and HTTP layer: a single run here has nothing to persist
// beyond the report file this command writes itself.
func buildCoordinator(cfg *config.Config, investigationID string, quiet bool, logger *zap.Logger) *coordinator.Coordinator {
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
		logger.Sugar().Warnw("connector failed credential validation, leaving registered", "connector", name, "error", err)
	}
	logger.Sugar().Info(connector.Describe(registry))

	resultCache := cache.New(&cache.Options{
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
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
	if !quiet {
		go printProgress(hub.Subscribe(investigationID))
	}

	schedulerCfg := scheduler.DefaultConfig()
	schedulerCfg.MaxConcurrency = cfg.MaxConcurrentQueriesPerInvestigation
	schedulerCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	schedulerCfg.RetryBase = time.Duration(cfg.BackoffBaseMs) * time.Millisecond
	schedulerCfg.RetryFactor = cfg.BackoffFactor
	schedulerCfg.RetryCap = time.Duration(cfg.BackoffCapMs) * time.Millisecond
	schedulerCfg.RetryJitter = cfg.BackoffJitter

	return coordinator.New(coordinator.Config{
		Registry:                 registry,
		Limiter:                  limiter,
		Cache:                    resultCache,
		Scheduler:                schedulerCfg,
		MatcherWeights:           matcher.DefaultWeights(),
		TextExtractor:            extractor,
		Narrative:                narrative,
		Hub:                      hub,
		MaxInvestigationDuration: cfg.MaxInvestigationDuration,
	})
}

// printProgress prints every event from sub to stderr until the
// investigation reaches a terminal status. The caller subscribes before the
// coordinator's Run call begins so no early event is missed.
func printProgress(sub *progress.Subscription) {
	defer sub.Unsubscribe()

	for event := range sub.Events {
		fmt.Fprintf(os.Stderr, "[%s] %s %d%% %s\n", event.EmittedAt.Format(time.RFC3339), event.Status, event.ProgressPercent, event.Message)
		if event.Status.Terminal() {
			return
		}
	}
}
