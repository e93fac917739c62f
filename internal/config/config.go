// Package config loads the environment-bound options enumerated in the
// pipeline's configuration contract: concurrency caps, timeouts, cache
// sizing, backoff tuning, and confidence thresholds.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognized startup option. Zero values are never used
// directly — Load always fills in the documented default for anything the
// environment doesn't set.
type Config struct {
	MaxConcurrentQueriesPerInvestigation int
	DefaultQueryTimeout                  time.Duration
	MaxInvestigationDuration             time.Duration

	CacheTTL        time.Duration
	CacheMaxEntries int

	RetryMaxAttempts int
	BackoffBaseMs    int
	BackoffFactor    float64
	BackoffCapMs     int
	BackoffJitter    float64

	RateLimitDefaultPerHour int

	EntityConfidenceThreshold int
	SourceConfidenceThreshold int

	// Ambient stack.
	Environment   string // "production" or "development", drives logger construction
	StorePath     string // sqlite DSN/file path
	RetentionCron string // cron expression for the retention sweeper
	MetricsAddr   string // loaded but not read; cmd/apiserver serves /metrics on its main router
	LLMProvider   string // "none" disables the LLM; any other value uses the Google AI genkit plugin when LLMAPIKey is set
	LLMAPIKey     string
	LLMModel      string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}

func getEnvFloatOrDefault(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for %s: %w", key, err)
	}
	return v, nil
}

// Load reads configuration from the environment, optionally populated by a
// .env file in the working directory (a missing .env is not an error —
// unlike the teacher's proxy config, no option here is hard-required, so
// the pipeline is runnable out of the box on defaults alone).
func Load() (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is normal in prod

	cfg := &Config{}

	var err error
	if cfg.MaxConcurrentQueriesPerInvestigation, err = getEnvIntOrDefault("MAX_CONCURRENT_QUERIES_PER_INVESTIGATION", 16); err != nil {
		return nil, err
	}

	queryTimeoutSec, err := getEnvIntOrDefault("DEFAULT_QUERY_TIMEOUT_SEC", 30)
	if err != nil {
		return nil, err
	}
	cfg.DefaultQueryTimeout = time.Duration(queryTimeoutSec) * time.Second

	durationMin, err := getEnvIntOrDefault("MAX_INVESTIGATION_DURATION_MIN", 120)
	if err != nil {
		return nil, err
	}
	if durationMin < 1 || durationMin > 360 {
		return nil, fmt.Errorf("MAX_INVESTIGATION_DURATION_MIN must be in [1,360], got %d", durationMin)
	}
	cfg.MaxInvestigationDuration = time.Duration(durationMin) * time.Minute

	cacheTTLSec, err := getEnvIntOrDefault("CACHE_TTL_SEC", 3600)
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(cacheTTLSec) * time.Second

	if cfg.CacheMaxEntries, err = getEnvIntOrDefault("CACHE_MAX_ENTRIES", 10000); err != nil {
		return nil, err
	}
	if cfg.CacheMaxEntries <= 0 {
		return nil, fmt.Errorf("CACHE_MAX_ENTRIES is mandatory and must be positive")
	}

	if cfg.RetryMaxAttempts, err = getEnvIntOrDefault("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.BackoffBaseMs, err = getEnvIntOrDefault("BACKOFF_BASE_MS", 500); err != nil {
		return nil, err
	}
	if cfg.BackoffFactor, err = getEnvFloatOrDefault("BACKOFF_FACTOR", 2.0); err != nil {
		return nil, err
	}
	if cfg.BackoffCapMs, err = getEnvIntOrDefault("BACKOFF_CAP_MS", 30000); err != nil {
		return nil, err
	}
	if cfg.BackoffJitter, err = getEnvFloatOrDefault("BACKOFF_JITTER_FRAC", 0.2); err != nil {
		return nil, err
	}

	if cfg.RateLimitDefaultPerHour, err = getEnvIntOrDefault("RATE_LIMIT_DEFAULT_PER_HOUR", 120); err != nil {
		return nil, err
	}

	if cfg.EntityConfidenceThreshold, err = getEnvIntOrDefault("ENTITY_CONFIDENCE_THRESHOLD", 70); err != nil {
		return nil, err
	}
	if cfg.SourceConfidenceThreshold, err = getEnvIntOrDefault("SOURCE_CONFIDENCE_THRESHOLD", 60); err != nil {
		return nil, err
	}

	cfg.Environment = getEnvOrDefault("ENVIRONMENT", "development")
	cfg.StorePath = getEnvOrDefault("STORE_PATH", "osint-investigations.db")
	cfg.RetentionCron = getEnvOrDefault("RETENTION_CRON", "0 3 * * *")
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", "")
	cfg.LLMProvider = getEnvOrDefault("LLM_PROVIDER", "none")
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	cfg.LLMModel = getEnvOrDefault("LLM_MODEL", "googleai/gemini-2.5-flash")

	return cfg, nil
}

// BackoffConfig is the subset of Config the rate-limit controller needs,
// split out so it can be constructed directly in tests without a full
// environment-loaded Config.
type BackoffConfig struct {
	BaseMs int
	Factor float64
	CapMs  int
	Jitter float64
}

// Backoff extracts the backoff tuning knobs.
func (c *Config) Backoff() BackoffConfig {
	return BackoffConfig{
		BaseMs: c.BackoffBaseMs,
		Factor: c.BackoffFactor,
		CapMs:  c.BackoffCapMs,
		Jitter: c.BackoffJitter,
	}
}
