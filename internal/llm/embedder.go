package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// OpenAIEmbedder implements semantic.Embedder with the Embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(client *openai.Client, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response has no data")
	}

	src := resp.Data[0].Embedding
	vec := make([]float32, len(src))
	for i, f := range src {
		vec[i] = float32(f)
	}
	return vec, nil
}
