// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/journalforest/forest-backend/internal/storage"
)

// LLM providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
)

// Embedding providers.
const (
	EmbedderOpenAI = "openai"
	EmbedderHash   = "hash"
)

// Semantic store backends.
const (
	SemanticStoreS3     = "s3"
	SemanticStoreMemory = "memory"
)

type Config struct {
	Port           int
	DatabaseURL    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string

	LLM       LLMConfig
	Semantic  SemanticConfig
	S3        storage.S3Config
	Reindex   ReindexConfig
	Streak    *time.Location
	RateLimit int // entry submissions per session per minute; 0 disables

	TreeCatalogFile string
}

type LLMConfig struct {
	Provider        string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
}

type SemanticConfig struct {
	Store          string
	Embedder       string
	EmbeddingModel string
}

type ReindexConfig struct {
	PollInterval time.Duration
	BatchSize    int
	DryRun       bool
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration using getenv. Tests pass a map lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}

	cfg := &Config{
		Port:            e.int("PORT", 8080),
		DatabaseURL:     getenv("DATABASE_URL"),
		ReadTimeout:     e.duration("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    e.duration("HTTP_WRITE_TIMEOUT", 60*time.Second),
		AllowedOrigins:  splitList(e.str("ALLOWED_ORIGINS", "http://localhost:5173")),
		RateLimit:       e.int("ENTRY_RATE_LIMIT_PER_MINUTE", 10),
		TreeCatalogFile: getenv("TREE_CATALOG_FILE"),
		LLM: LLMConfig{
			Provider:        strings.ToLower(e.str("LLM_PROVIDER", ProviderMock)),
			AnthropicAPIKey: getenv("ANTHROPIC_API_KEY"),
			AnthropicModel:  e.str("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
			OpenAIAPIKey:    getenv("OPENAI_API_KEY"),
			OpenAIModel:     e.str("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Semantic: SemanticConfig{
			Store:          strings.ToLower(e.str("SEMANTIC_STORE", SemanticStoreMemory)),
			Embedder:       strings.ToLower(e.str("EMBEDDING_PROVIDER", EmbedderHash)),
			EmbeddingModel: e.str("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		S3: storage.S3Config{
			Endpoint:        getenv("S3_ENDPOINT"),
			AccessKeyID:     getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("AWS_SECRET_ACCESS_KEY"),
			BucketName:      getenv("BUCKET_NAME"),
			UseSSL:          getenv("S3_USE_SSL") != "false", // default true
		},
		Reindex: ReindexConfig{
			PollInterval: e.duration("REINDEX_POLL_INTERVAL", 30*time.Second),
			BatchSize:    e.int("REINDEX_BATCH_SIZE", 50),
			DryRun:       getenv("REINDEX_DRY_RUN") == "true",
		},
	}

	tz := e.str("STREAK_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("STREAK_TIMEZONE: %w", err))
	}
	cfg.Streak = loc

	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required and cross-field settings.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, missing("DATABASE_URL"))
	}

	switch c.LLM.Provider {
	case ProviderAnthropic:
		if c.LLM.AnthropicAPIKey == "" {
			errs = append(errs, missing("ANTHROPIC_API_KEY"))
		}
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			errs = append(errs, missing("OPENAI_API_KEY"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER: unknown provider %q", c.LLM.Provider))
	}

	switch c.Semantic.Embedder {
	case EmbedderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			errs = append(errs, missing("OPENAI_API_KEY"))
		}
	case EmbedderHash:
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER: unknown provider %q", c.Semantic.Embedder))
	}

	switch c.Semantic.Store {
	case SemanticStoreS3:
		for name, v := range map[string]string{
			"S3_ENDPOINT":           c.S3.Endpoint,
			"AWS_ACCESS_KEY_ID":     c.S3.AccessKeyID,
			"AWS_SECRET_ACCESS_KEY": c.S3.SecretAccessKey,
			"BUCKET_NAME":           c.S3.BucketName,
		} {
			if v == "" {
				errs = append(errs, missing(name))
			}
		}
	case SemanticStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("SEMANTIC_STORE: unknown store %q", c.Semantic.Store))
	}

	if c.RateLimit < 0 {
		errs = append(errs, errors.New("ENTRY_RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	if c.Reindex.BatchSize <= 0 {
		errs = append(errs, errors.New("REINDEX_BATCH_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

func missing(name string) error {
	return fmt.Errorf("missing required env var %s", name)
}

type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e *env) int(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
