package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/journalforest/forest-backend/internal/anthropic"
)

// CompletionRequest is a single structured-output call.
type CompletionRequest struct {
	System     string
	Input      string
	MaxTokens  int
	SchemaName string
	Schema     map[string]any
}

// Completion is the raw text a model produced plus token usage.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Completer is a model provider. Implementations must return text that
// decodes as JSON matching req.Schema, possibly wrapped in prose.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// AnthropicCompleter sends requests through the Messages API. The schema is
// appended to the system prompt since the API has no strict JSON mode.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicCompleter(client *anthropic.Client, model string) *AnthropicCompleter {
	return &AnthropicCompleter{client: client, model: model}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	system := req.System
	if req.Schema != nil {
		schema, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema: %w", err)
		}
		system += "\n\nRespond with a single JSON object matching this JSON schema and nothing else:\n" + string(schema)
	}

	temperature := 0.0
	resp, err := c.client.CreateMessage(ctx, &anthropic.MessagesRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
		System:      system,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Input}},
	})
	if err != nil {
		return nil, err
	}
	if resp.Truncated() {
		return nil, fmt.Errorf("response truncated at %d tokens", req.MaxTokens)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Completion{
		Text:         resp.GetTextContent(),
		Model:        model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// OpenAICompleter uses the Responses API with strict JSON schema output.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client whose HTTP calls are traced. Extra
// options (base URL, retries) are applied last.
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *openai.Client {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{
			Timeout:   120 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	}
	client := openai.NewClient(append(base, opts...)...)
	return &client
}

func NewOpenAICompleter(client *openai.Client, model string) *OpenAICompleter {
	return &OpenAICompleter{client: client, model: model}
}

func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(int64(req.MaxTokens)),
		Instructions:    openai.String(req.System),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if req.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        req.SchemaName,
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
					Description: openai.String(req.SchemaName + " JSON"),
					Type:        "json_schema",
				},
			},
		}
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, err
	}

	model := string(resp.Model)
	if model == "" {
		model = c.model
	}
	return &Completion{
		Text:         resp.OutputText(),
		Model:        model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// StatusCode extracts the upstream HTTP status from a provider error, or 0.
func StatusCode(err error) int {
	var anthropicErr *anthropic.APIError
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	return 0
}
