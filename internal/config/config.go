package config

import (
	"errors"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// ErrMissingAPIKey reports that no OpenAI credential was configured.
var ErrMissingAPIKey = errors.New("config: OPENAI_API_KEY is required")

// Config holds runtime configuration read from the environment.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Reference document
	SourcePath string `env:"SOURCE_PATH" envDefault:"./Sam Altman.txt"`
	SkipLines  int    `env:"SKIP_LINES" envDefault:"28"`
	Subject    string `env:"SUBJECT" envDefault:"Sam Altman"`

	// Prompt
	SectionLabel string `env:"SECTION_LABEL" envDefault:"Wikipedia article section"`

	// Tokenizer is "tiktoken" (model BPE) or "whitespace" (offline approximation).
	Tokenizer string `env:"TOKENIZER" envDefault:"tiktoken"`

	// TiktokenOffline uses BPE ranks embedded in the binary instead of downloading them.
	TiktokenOffline bool `env:"TIKTOKEN_OFFLINE" envDefault:"true"`

	// Token budgets
	PromptTokenBudget int    `env:"PROMPT_TOKEN_BUDGET" envDefault:"2048"`
	ChunkMaxTokens    int    `env:"CHUNK_MAX_TOKENS" envDefault:"1600"`
	ChunkMaxRecursion int    `env:"CHUNK_MAX_RECURSION" envDefault:"5"`

	// LLM & Embeddings
	LLMProvider    string        `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (uses OpenAI API)
	OpenAIKey      string        `env:"OPENAI_API_KEY"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"gpt-3.5-turbo"`
	EmbeddingModel string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-ada-002"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`

	// Answer cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "redis" or "none"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Embedding jobs
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"nats"` // "nats" or "none"
	QueueURL      string `env:"QUEUE_URL"`

	// Embedding store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"postgres"` // "postgres" (production database)
	DBURL         string `env:"DB_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// Validate reports configuration that makes startup impossible.
func (c Config) Validate() error {
	if c.OpenAIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
