package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/option"

	"github.com/journalforest/forest-backend/internal/anthropic"
)

func TestAnthropicCompleter(t *testing.T) {
	var gotReq anthropic.MessagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(anthropic.MessagesResponse{
			Content:    []anthropic.ContentBlock{{Type: "text", Text: "Here you go: {\"id\":\"x\"}"}},
			Model:      "claude-haiku-4-5-20251001",
			StopReason: "end_turn",
			Usage:      anthropic.Usage{InputTokens: 300, OutputTokens: 50},
		})
	}))
	defer server.Close()

	c := NewAnthropicCompleter(anthropic.NewClient("k", anthropic.WithBaseURL(server.URL)), "claude-haiku-4-5")
	got, err := c.Complete(context.Background(), CompletionRequest{
		System:     "system text",
		Input:      "entry text",
		MaxTokens:  500,
		SchemaName: "Thing",
		Schema:     map[string]any{"type": "object"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if !strings.HasPrefix(gotReq.System, "system text") || !strings.Contains(gotReq.System, `{"type":"object"}`) {
		t.Errorf("system prompt missing schema: %q", gotReq.System)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "entry text" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if got.Model != "claude-haiku-4-5-20251001" || got.InputTokens != 300 || got.OutputTokens != 50 {
		t.Errorf("completion = %+v", got)
	}
}

func TestAnthropicCompleterTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropic.MessagesResponse{
			Content:    []anthropic.ContentBlock{{Type: "text", Text: `{"memory_sum`}},
			StopReason: "max_tokens",
		})
	}))
	defer server.Close()

	c := NewAnthropicCompleter(anthropic.NewClient("k", anthropic.WithBaseURL(server.URL)), "m")
	if _, err := c.Complete(context.Background(), CompletionRequest{Input: "x", MaxTokens: 10}); err == nil {
		t.Fatal("expected error for truncated response")
	}
}

func TestAnthropicCompleterStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	client := anthropic.NewClient("bad", anthropic.WithBaseURL(server.URL), anthropic.WithRetries(0, time.Millisecond))
	_, err := NewAnthropicCompleter(client, "m").Complete(context.Background(), CompletionRequest{Input: "x", MaxTokens: 10})
	if StatusCode(err) != http.StatusUnauthorized {
		t.Errorf("StatusCode(%v) = %d, want 401", err, StatusCode(err))
	}
}

func TestOpenAICompleter(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %s, want /responses", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "resp_1",
			"object": "response",
			"model": "gpt-4o-mini-2024-07-18",
			"status": "completed",
			"output": [{
				"type": "message",
				"id": "msg_1",
				"role": "assistant",
				"status": "completed",
				"content": [{"type": "output_text", "text": "{\"prompts\":[]}", "annotations": []}]
			}],
			"usage": {"input_tokens": 120, "output_tokens": 30, "total_tokens": 150}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	c := NewOpenAICompleter(client, "gpt-4o-mini")
	got, err := c.Complete(context.Background(), CompletionRequest{
		System:     "write prompts",
		Input:      "blob",
		MaxTokens:  400,
		SchemaName: "JournalPrompts",
		Schema:     promptsSchema,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if got.Text != `{"prompts":[]}` {
		t.Errorf("text = %q", got.Text)
	}
	if got.Model != "gpt-4o-mini-2024-07-18" || got.InputTokens != 120 || got.OutputTokens != 30 {
		t.Errorf("completion = %+v", got)
	}

	if body["instructions"] != "write prompts" {
		t.Errorf("instructions = %v", body["instructions"])
	}
	text, _ := body["text"].(map[string]any)
	format, _ := text["format"].(map[string]any)
	if format["type"] != "json_schema" || format["name"] != "JournalPrompts" || format["strict"] != true {
		t.Errorf("format = %v", format)
	}
}

func TestOpenAICompleterStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad schema","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	_, err := NewOpenAICompleter(client, "gpt-4o-mini").Complete(context.Background(), CompletionRequest{Input: "x", MaxTokens: 10})
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("StatusCode(%v) = %d, want 400", err, StatusCode(err))
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s, want /embeddings", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "text-embedding-3-small" || body["input"] != "a calm walk" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.25, -0.5, 1]}],
			"usage": {"prompt_tokens": 3, "total_tokens": 3}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	vec, err := NewOpenAIEmbedder(client, "text-embedding-3-small").Embed(context.Background(), "a calm walk")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{0.25, -0.5, 1}
	if len(vec) != len(want) {
		t.Fatalf("vec = %v", vec)
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %v, want %v", i, vec[i], want[i])
		}
	}
}
