package anthropic

import (
	"fmt"
	"strings"
	"time"
)

// MessagesRequest represents a request to the Messages API.
type MessagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
}

// Message is one conversation turn with plain text content.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesResponse represents a response from the Messages API.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock represents a content block in the response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// GetTextContent concatenates the text blocks of the response.
func (r *MessagesResponse) GetTextContent() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// Truncated reports whether generation stopped at the token limit.
func (r *MessagesResponse) Truncated() bool {
	return r.StopReason == "max_tokens"
}

// APIError is an error response from the Anthropic API.
type APIError struct {
	Type        string        `json:"type"`
	ErrorDetail ErrorDetails  `json:"error"`
	StatusCode  int           `json:"-"`
	RetryAfter  time.Duration `json:"-"`
}

// ErrorDetails contains the error details.
type ErrorDetails struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic API error (status %d, type %s): %s", e.StatusCode, e.ErrorDetail.Type, e.ErrorDetail.Message)
}
