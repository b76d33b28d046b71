package llm

import (
	"fmt"

	"github.com/openai/openai-go/option"

	"github.com/journalforest/forest-backend/internal/anthropic"
	"github.com/journalforest/forest-backend/internal/config"
	"github.com/journalforest/forest-backend/internal/semantic"
)

// NewProvider builds the Provider selected by cfg.Provider.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderMock:
		return Mock{}, nil
	case config.ProviderAnthropic:
		client := anthropic.NewClient(cfg.AnthropicAPIKey)
		return NewService(NewAnthropicCompleter(client, cfg.AnthropicModel)), nil
	case config.ProviderOpenAI:
		client := NewOpenAIClient(cfg.OpenAIAPIKey, option.WithMaxRetries(2))
		return NewService(NewOpenAICompleter(client, cfg.OpenAIModel)), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// NewEmbedder builds the semantic.Embedder selected by cfg.Embedder.
// The OpenAI embedder shares the LLM config's API key.
func NewEmbedder(cfg config.SemanticConfig, llmCfg config.LLMConfig) (semantic.Embedder, error) {
	switch cfg.Embedder {
	case config.EmbedderHash:
		return semantic.HashEmbedder{}, nil
	case config.EmbedderOpenAI:
		client := NewOpenAIClient(llmCfg.OpenAIAPIKey, option.WithMaxRetries(2))
		return NewOpenAIEmbedder(client, cfg.EmbeddingModel), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedder)
	}
}
