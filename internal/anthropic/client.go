// Package anthropic is a small client for the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("forest/anthropic")

const (
	defaultBaseURL    = "https://api.anthropic.com"
	apiVersion        = "2023-06-01"
	defaultMaxRetries = 2
)

// Client is an HTTP client for the Anthropic API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another host, such as an httptest server.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets how many times a rate-limited or overloaded request is
// retried, and the initial backoff between attempts.
func WithRetries(n int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
		c.backoff = backoff
	}
}

// NewClient creates a new Anthropic API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		maxRetries: defaultMaxRetries,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateMessage sends a request to /v1/messages. Rate limits (429) and
// server errors (5xx, 529 overloaded) are retried with exponential backoff,
// honoring Retry-After when present.
func (c *Client) CreateMessage(ctx context.Context, req *MessagesRequest) (*MessagesResponse, error) {
	ctx, span := tracer.Start(ctx, "anthropic.create_message",
		trace.WithAttributes(
			attribute.String("llm.model", req.Model),
			attribute.Int("llm.max_tokens", req.MaxTokens),
		))
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff << (attempt - 1)
			var apiErr *APIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := c.send(ctx, body)
		if err == nil {
			span.SetAttributes(
				attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
				attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
				attribute.Int("llm.attempts", attempt+1),
			)
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, body []byte) (*MessagesResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil {
			apiErr.ErrorDetail = ErrorDetails{Type: "unknown", Message: string(respBody)}
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return nil, apiErr
	}

	var messagesResp MessagesResponse
	if err := json.Unmarshal(respBody, &messagesResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &messagesResp, nil
}

// IsRetryable reports whether err is a rate limit or a server-side failure.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}
