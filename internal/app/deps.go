package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"doc-qa/internal/cache"
	"doc-qa/internal/chunker"
	"doc-qa/internal/config"
	"doc-qa/internal/document"
	"doc-qa/internal/embeddings"
	"doc-qa/internal/llm"
	"doc-qa/internal/logger"
	"doc-qa/internal/prompt"
	"doc-qa/internal/qa"
	"doc-qa/internal/queue"
	"doc-qa/internal/store"
	"doc-qa/internal/tokenizer"
)

// ServerDeps bundles what the question/answer HTTP service needs.
type ServerDeps struct {
	Config   config.Config
	Log      *slog.Logger
	Pipeline *qa.Pipeline
	Cache    cache.Cache
	Queue    queue.Queue // nil when embedding jobs are disabled
}

// EmbedderDeps bundles what the embedding worker needs.
type EmbedderDeps struct {
	Config config.Config
	Log    *slog.Logger
	Queue  queue.Queue
	Embed  *qa.EmbedPipeline
}

// Init loads .env when present, reads and validates config, and builds the logger.
func Init() (config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// BuildServer wires the HTTP service.
func BuildServer() (ServerDeps, error) {
	cfg, log, err := Init()
	if err != nil {
		return ServerDeps{}, err
	}
	pipeline, err := BuildPipeline(cfg, log)
	if err != nil {
		return ServerDeps{}, err
	}
	q, err := buildQueue(cfg, log, false)
	if err != nil {
		return ServerDeps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	return ServerDeps{
		Config:   cfg,
		Log:      log,
		Pipeline: pipeline,
		Cache:    buildCache(cfg, log),
		Queue:    q,
	}, nil
}

// BuildEmbedder wires the embedding worker.
func BuildEmbedder() (EmbedderDeps, error) {
	cfg, log, err := Init()
	if err != nil {
		return EmbedderDeps{}, err
	}
	embed, err := BuildEmbedPipeline(cfg, log)
	if err != nil {
		return EmbedderDeps{}, err
	}
	q, err := buildQueue(cfg, log, true)
	if err != nil {
		return EmbedderDeps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	return EmbedderDeps{Config: cfg, Log: log, Queue: q, Embed: embed}, nil
}

// BuildPipeline wires the question pipeline over the configured source.
func BuildPipeline(cfg config.Config, log *slog.Logger) (*qa.Pipeline, error) {
	tok, err := buildTokenizer(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	client, err := buildLLM(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	assembler := prompt.NewAssembler(prompt.Header(cfg.Subject), cfg.PromptTokenBudget, tok).
		WithSectionLabel(cfg.SectionLabel)
	svc := qa.NewService(client, assembler, prompt.SystemRole(cfg.Subject))
	src := qa.Source{Path: cfg.SourcePath, SkipLines: cfg.SkipLines}
	return qa.NewPipeline(document.NewLoader(log), chunker.New(tok, log), svc, src,
		cfg.ChunkMaxTokens, cfg.ChunkMaxRecursion, log), nil
}

// BuildEmbedPipeline wires the embedding pipeline with its Postgres store.
func BuildEmbedPipeline(cfg config.Config, log *slog.Logger) (*qa.EmbedPipeline, error) {
	tok, err := buildTokenizer(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	embedder, err := buildEmbedder(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	st, err := buildStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return qa.NewEmbedPipeline(document.NewLoader(log), chunker.New(tok, log), embedder, st,
		cfg.EmbeddingModel, cfg.ChunkMaxTokens, cfg.ChunkMaxRecursion, log), nil
}

func buildTokenizer(cfg config.Config, log *slog.Logger) (tokenizer.Tokenizer, error) {
	switch cfg.Tokenizer {
	case "tiktoken":
		if cfg.TiktokenOffline {
			tokenizer.UseOfflineEncodings()
		}
		tok, err := tokenizer.NewTiktoken(cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		log.Info("using tiktoken tokenizer", "model", tok.Model(), "offline", cfg.TiktokenOffline)
		return tok, nil
	case "whitespace":
		log.Warn("using whitespace token approximation")
		return tokenizer.Whitespace{}, nil
	default:
		return nil, fmt.Errorf("invalid TOKENIZER: %s (valid options: tiktoken, whitespace)", cfg.Tokenizer)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel), cfg.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: openai)", cfg.LLMProvider)
	}
}

func buildEmbedder(cfg config.Config, log *slog.Logger) (embeddings.Embedder, error) {
	switch cfg.LLMProvider {
	case "openai":
		embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), cfg.LLMTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedder", "model", cfg.EmbeddingModel)
		return embedder, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: openai)", cfg.LLMProvider)
	}
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid option: postgres)", cfg.StoreProvider)
	}
}

// buildQueue connects to NATS. Unless required, a missing QUEUE_URL or
// QUEUE_PROVIDER=none disables the queue and returns nil.
func buildQueue(cfg config.Config, log *slog.Logger, required bool) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "nats":
		if cfg.QueueURL == "" {
			if required {
				return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
			}
			log.Warn("QUEUE_URL not set; embedding jobs disabled")
			return nil, nil
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	case "none":
		if required {
			return nil, fmt.Errorf("a queue is required (valid option: nats)")
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: nats, none)", cfg.QueueProvider)
	}
}

// buildCache falls back to a no-op cache when Redis is not configured or unreachable.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.CacheProvider != "redis" {
		return cache.NewNoOpCache()
	}
	c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable; answer caching disabled", "addr", cfg.RedisAddr, "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis answer cache", "addr", cfg.RedisAddr)
	return c
}
