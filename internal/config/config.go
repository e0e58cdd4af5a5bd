package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(
		NewConfig,
		func(c *Config) *DatabaseConfig { return &c.Database },
		func(c *Config) *CacheConfig { return &c.Cache },
		func(c *Config) *StorageConfig { return &c.Storage },
		func(c *Config) *LLMConfig { return &c.LLM },
		func(c *Config) *OrchestratorConfig { return &c.Orchestrator },
		func(c *Config) *CostLimitsConfig { return &c.CostLimits },
		func(c *Config) *SourceCredentials { return &c.Sources },
		func(c *Config) *WriterConfig { return &c.Writer },
		func(c *Config) *OtelConfig { return &c.Otel },
		func(c *Config) *MetricsConfig { return &c.Metrics },
		func(c *Config) *RunnerConfig { return &c.Runner },
	),
)

// Config holds all application configuration for the enrichment core.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"local"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Database     DatabaseConfig
	Cache        CacheConfig
	Storage      StorageConfig
	LLM          LLMConfig
	Orchestrator OrchestratorConfig
	CostLimits   CostLimitsConfig
	Sources      SourceCredentials
	Writer       WriterConfig
	Otel         OtelConfig
	Metrics      MetricsConfig
	Runner       RunnerConfig
}

// MetricsConfig controls the Prometheus scrape listener. Leave Addr empty
// to disable it; counters still accumulate in-process.
type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR" envDefault:""`
}

// DatabaseConfig holds PostgreSQL connection settings for the actor/death
// circumstances store.
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"enrichcore"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"enrichcore"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// CacheConfig holds Redis connection settings for the lookup-result cache.
type CacheConfig struct {
	URL            string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	DefaultTTL     time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"168h"`
	NegativeTTL    time.Duration `env:"CACHE_NEGATIVE_TTL" envDefault:"24h"`
	KeyPrefix      string        `env:"CACHE_KEY_PREFIX" envDefault:"enrichcore"`
	RequireReachable bool        `env:"CACHE_REQUIRE_REACHABLE" envDefault:"true"`
}

// StorageConfig holds storage (MinIO/S3-compatible) configuration used to
// archive the raw per-source JSON blobs collected during a run.
type StorageConfig struct {
	Endpoint        string `env:"STORAGE_ENDPOINT" envDefault:""`
	AccessKeyID     string `env:"STORAGE_ACCESS_KEY" envDefault:""`
	SecretAccessKey string `env:"STORAGE_SECRET_KEY" envDefault:""`
	Region          string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	BucketRawSources string `env:"STORAGE_BUCKET_RAW_SOURCES" envDefault:"raw-sources"`
}

// IsConfigured returns true if storage is configured.
func (s *StorageConfig) IsConfigured() bool {
	return s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// LLMConfig holds the synthesis LLM configuration.
type LLMConfig struct {
	GCPProjectID     string `env:"GCP_PROJECT_ID" envDefault:""`
	VertexAILocation string `env:"VERTEX_AI_LOCATION" envDefault:"us-central1"`

	// Model is the model used for the final synthesis call.
	Model string `env:"SYNTHESIS_MODEL" envDefault:"gemini-2.5-pro"`

	// GroundedSearchModel is the model used by the ai-tier sources that
	// perform a Gemini-with-Google-Search grounded lookup.
	GroundedSearchModel      string  `env:"GROUNDED_SEARCH_MODEL" envDefault:"gemini-2.5-flash"`
	GroundedSearchTemperature float32 `env:"GROUNDED_SEARCH_TEMPERATURE" envDefault:"0.2"`

	MaxOutputTokens int           `env:"LLM_MAX_OUTPUT_TOKENS" envDefault:"8192"`
	Timeout         time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	MaxRetries      int           `env:"LLM_MAX_RETRIES" envDefault:"2"`

	// AnthropicAPIKey, when set, enables the Claude-backed grounded-search
	// source as an alternative ai-tier source.
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" envDefault:""`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5-20250929"`

	NetworkDisabled bool `env:"LLM_NETWORK_DISABLED" envDefault:"false"`
}

// IsEnabled returns true if Vertex AI credentials are present.
func (l *LLMConfig) IsEnabled() bool {
	if l.NetworkDisabled {
		return false
	}
	return l.GCPProjectID != "" && l.VertexAILocation != ""
}

// AnthropicEnabled returns true if a Claude API key is configured.
func (l *LLMConfig) AnthropicEnabled() bool {
	return !l.NetworkDisabled && l.AnthropicAPIKey != ""
}

// OrchestratorConfig holds the enrichment pipeline's tunables: the
// early-stop thresholds, per-source timeout, and concurrency knobs
// described in the orchestrator's options table.
type OrchestratorConfig struct {
	// SourceTimeout bounds a single source's fetch+parse.
	SourceTimeout time.Duration `env:"ORCH_SOURCE_TIMEOUT" envDefault:"20s"`

	// EarlyStopSourceCount is the number of qualifying families needed to
	// stop the pipeline early. Must be >= 1; the orchestrator rejects 0.
	EarlyStopSourceCount int `env:"ORCH_EARLY_STOP_SOURCE_COUNT" envDefault:"5"`

	// EarlyStopMinConfidence is the minimum per-source confidence required
	// for a source to count toward the early-stop family count.
	EarlyStopMinConfidence float64 `env:"ORCH_EARLY_STOP_MIN_CONFIDENCE" envDefault:"0.3"`

	// EarlyStopMinReliability excludes sources below this reliability
	// score from counting toward early stop, even if they qualify on
	// confidence. A hit from a marginal source never ends a run early.
	EarlyStopMinReliability float64 `env:"ORCH_EARLY_STOP_MIN_RELIABILITY" envDefault:"0.7"`

	// DisableBookExemption turns off the rule that book-tier sources
	// always count toward early stop regardless of reliability score.
	DisableBookExemption bool `env:"ORCH_DISABLE_BOOK_EXEMPTION" envDefault:"false"`

	// DisabledCategories is a comma-separated list of source category
	// names to skip entirely for every run (env.Parse splits on comma
	// for slice fields).
	DisabledCategories []string `env:"ORCH_DISABLED_CATEGORIES" envSeparator:","`

	// BatchConcurrency bounds how many actors enrichBatch processes
	// concurrently; 1 preserves the sequential-by-default semantics.
	BatchConcurrency int `env:"ORCH_BATCH_CONCURRENCY" envDefault:"1"`
}

// CostLimitsConfig bounds how much of the configured external spend budget
// a single actor run, and a single batch run, may consume.
type CostLimitsConfig struct {
	MaxCostPerActorUSD float64 `env:"COST_MAX_PER_ACTOR_USD" envDefault:"0.50"`
	MaxCostPerBatchUSD float64 `env:"COST_MAX_PER_BATCH_USD" envDefault:"25.00"`
}

// WriterConfig selects how the writer commits a synthesized enrichment
// record: "production" updates the live columns and invalidates cache in
// one transaction; "staging" inserts a pending-review row reviewed later
// by a human and never touches cache.
type WriterConfig struct {
	Mode string `env:"WRITER_MODE" envDefault:"staging"`
}

// RunnerConfig tunes the batch-run queue that drives the enrichment
// worker: how often missing-circumstances actors are swept into
// batch_runs, and how the worker polls and retries that table.
type RunnerConfig struct {
	Enabled bool `env:"RUNNER_ENABLED" envDefault:"true"`

	// EnqueueInterval is how often the scheduler sweeps for actors missing
	// circumstances and enqueues a batch_runs row for each.
	EnqueueInterval time.Duration `env:"RUNNER_ENQUEUE_INTERVAL" envDefault:"15m"`

	// EnqueueLimit bounds how many actors one sweep enqueues.
	EnqueueLimit int `env:"RUNNER_ENQUEUE_LIMIT" envDefault:"200"`

	// PollInterval is how often the worker checks batch_runs for pending work.
	PollInterval time.Duration `env:"RUNNER_POLL_INTERVAL" envDefault:"5s"`

	// BatchSize is how many batch_runs rows one poll dequeues.
	BatchSize int `env:"RUNNER_BATCH_SIZE" envDefault:"5"`

	// MaxAttempts bounds retries per batch_runs row; 0 means unlimited.
	MaxAttempts int `env:"RUNNER_MAX_ATTEMPTS" envDefault:"3"`

	// StaleThresholdMinutes recovers rows stuck in "processing" after a crash.
	StaleThresholdMinutes int `env:"RUNNER_STALE_THRESHOLD_MINUTES" envDefault:"10"`
}

// SourceCredentials holds the per-source API keys and identifiers needed
// by the paid/keyed members of the source catalog. Sources whose key is
// empty report not_configured rather than attempting a request; the
// wikimedia, encyclopedia, and editorial scraping sources need no
// credential and are always available.
type SourceCredentials struct {
	// GoogleCSEAPIKey and GoogleCSEEngineID back the google_cse web-search
	// source (Programmable Search Engine).
	GoogleCSEAPIKey  string `env:"GOOGLE_CSE_API_KEY" envDefault:""`
	GoogleCSEEngineID string `env:"GOOGLE_CSE_ENGINE_ID" envDefault:""`

	// BingSearchAPIKey backs the bing web-search source (Azure Cognitive
	// Services Bing Search v7).
	BingSearchAPIKey string `env:"BING_SEARCH_API_KEY" envDefault:""`

	// BraveSearchAPIKey backs the brave web-search source.
	BraveSearchAPIKey string `env:"BRAVE_SEARCH_API_KEY" envDefault:""`

	// NYTAPIKey backs the nyt news source (Article Search API).
	NYTAPIKey string `env:"NYT_API_KEY" envDefault:""`

	// GuardianAPIKey backs the guardian news source (Content API); the
	// Guardian issues a free "test" key, so this is treated as a soft
	// requirement, not a paid one.
	GuardianAPIKey string `env:"GUARDIAN_API_KEY" envDefault:""`

	// TroveAPIKey backs the trove archival source (National Library of
	// Australia).
	TroveAPIKey string `env:"TROVE_API_KEY" envDefault:""`

	// EuropeanaAPIKey backs the europeana archival source.
	EuropeanaAPIKey string `env:"EUROPEANA_API_KEY" envDefault:""`

	// GoogleBooksAPIKey raises the google_books quota; the API is usable
	// unauthenticated at a lower rate, so this source is always available.
	GoogleBooksAPIKey string `env:"GOOGLE_BOOKS_API_KEY" envDefault:""`
}

// NewConfig loads configuration from environment variables.
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("db_host", cfg.Database.Host),
		slog.Int("early_stop_source_count", cfg.Orchestrator.EarlyStopSourceCount),
		slog.Float64("max_cost_per_actor_usd", cfg.CostLimits.MaxCostPerActorUSD),
	)

	return cfg, nil
}
