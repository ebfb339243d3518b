package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for converso-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL with pgvector)
	Database DatabaseConfig `yaml:"database"`

	// AI provider configuration (chat + embedding via one OpenAI-compatible endpoint)
	AI AIConfig `yaml:"ai"`

	// Small-talk pipeline tuning
	SmallTalk SmallTalkConfig `yaml:"small_talk"`

	// Knowledge-base retrieval tuning
	Rag RagConfig `yaml:"rag"`

	// Batch embedding job tuning
	Training TrainingConfig `yaml:"training"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"converso"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"converso_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// AIConfig holds model endpoints, identifiers and per-call budgets.
type AIConfig struct {
	Endpoint string `yaml:"endpoint" env:"AI_ENDPOINT" env-default:"https://api.openai.com/v1"`
	APIKey   string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML

	ChatModel      string `yaml:"chat_model" env:"AI_CHAT_MODEL" env-default:"gpt-4o-mini"`
	EmbeddingModel string `yaml:"embedding_model" env:"AI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`

	// Per-call timeouts. Chat calls tolerate longer latency than embedding
	// lookups, which sit on the interactive search path.
	ChatTimeoutSeconds      int `yaml:"chat_timeout_seconds" env:"AI_CHAT_TIMEOUT_SECONDS" env-default:"15"`
	EmbeddingTimeoutSeconds int `yaml:"embedding_timeout_seconds" env:"AI_EMBEDDING_TIMEOUT_SECONDS" env-default:"4"`
}

// SmallTalkConfig holds intent-pipeline tuning knobs.
// Thresholds are empirically tuned per deployment, not hard invariants.
type SmallTalkConfig struct {
	// MinLLMConfidence is the floor below which a fused classify+generate
	// result is discarded.
	MinLLMConfidence float64 `yaml:"min_llm_confidence" env:"SMALLTALK_MIN_LLM_CONFIDENCE" env-default:"0.5"`

	// MaxResponseTokens is the completion budget for generated replies.
	MaxResponseTokens int `yaml:"max_response_tokens" env:"SMALLTALK_MAX_RESPONSE_TOKENS" env-default:"150"`

	// Temperature for reply generation.
	Temperature float64 `yaml:"temperature" env:"SMALLTALK_TEMPERATURE" env-default:"0.7"`

	// RegexBudgetMs bounds each pattern evaluation attempt. An attempt that
	// does not finish in budget counts as a non-match.
	RegexBudgetMs int `yaml:"regex_budget_ms" env:"SMALLTALK_REGEX_BUDGET_MS" env-default:"50"`
}

// RagConfig holds retrieval tuning. Distance is cosine distance: smaller is
// closer, so both thresholds are maximum-distance cutoffs.
type RagConfig struct {
	// MaxDistance is the default cutoff for knowledge-base search.
	MaxDistance float64 `yaml:"max_distance" env:"RAG_MAX_DISTANCE" env-default:"0.5"`

	// StrictMaxDistance is the tighter cutoff used by call sites that prefer
	// precision over recall (e.g. single-answer FAQ lookups).
	StrictMaxDistance float64 `yaml:"strict_max_distance" env:"RAG_STRICT_MAX_DISTANCE" env-default:"0.35"`

	// MaxResults caps retrieved passages per query.
	MaxResults int `yaml:"max_results" env:"RAG_MAX_RESULTS" env-default:"5"`

	// RewriteMaxWords: messages longer than this are assumed self-contained
	// and skip LLM query rewriting.
	RewriteMaxWords int `yaml:"rewrite_max_words" env:"RAG_REWRITE_MAX_WORDS" env-default:"5"`
}

// TrainingConfig holds batch embedding job tuning.
type TrainingConfig struct {
	// BatchSize is the number of entries processed per batch.
	BatchSize int `yaml:"batch_size" env:"TRAINING_BATCH_SIZE" env-default:"20"`

	// MaxConcurrent bounds in-flight embedding calls within a batch.
	MaxConcurrent int `yaml:"max_concurrent" env:"TRAINING_MAX_CONCURRENT" env-default:"8"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints that cleanenv cannot express.
func (c *Config) Validate() error {
	if c.AI.Endpoint == "" {
		return fmt.Errorf("ai.endpoint is required")
	}
	if c.AI.ChatModel == "" {
		return fmt.Errorf("ai.chat_model is required")
	}
	if c.AI.EmbeddingModel == "" {
		return fmt.Errorf("ai.embedding_model is required")
	}
	if c.SmallTalk.MinLLMConfidence < 0 || c.SmallTalk.MinLLMConfidence >= 1 {
		return fmt.Errorf("small_talk.min_llm_confidence must be in [0, 1)")
	}
	if c.Rag.MaxDistance <= 0 || c.Rag.StrictMaxDistance <= 0 {
		return fmt.Errorf("rag distance thresholds must be positive")
	}
	if c.Training.BatchSize < 1 {
		return fmt.Errorf("training.batch_size must be at least 1")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
