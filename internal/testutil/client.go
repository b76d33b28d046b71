package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

// TestOrigin is the browser origin the test client claims.
const TestOrigin = "http://localhost:5173"

// TestClient talks JSON to a TestServer the way the web client does.
// Transport errors fail the test.
type TestClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func NewTestClient(t *testing.T, ts *TestServer) *TestClient {
	t.Helper()
	return &TestClient{
		t:    t,
		base: ts.URL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TestClient) do(method, path string, body io.Reader, header http.Header) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Origin", TestOrigin)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *TestClient) Get(path string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodGet, path, nil, nil)
}

func (c *TestClient) Delete(path string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodDelete, path, nil, nil)
}

// Post sends v as JSON. A nil v sends no body.
func (c *TestClient) Post(path string, v any) *http.Response {
	c.t.Helper()
	if v == nil {
		return c.do(http.MethodPost, path, nil, nil)
	}
	return c.do(http.MethodPost, path, bytes.NewReader(c.marshal(v)), http.Header{
		"Content-Type": {"application/json"},
	})
}

// PostZstd sends v as zstd-compressed JSON.
func (c *TestClient) PostZstd(path string, v any) *http.Response {
	c.t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		c.t.Fatalf("failed to create zstd encoder: %v", err)
	}
	defer enc.Close()
	return c.do(http.MethodPost, path, bytes.NewReader(enc.EncodeAll(c.marshal(v), nil)), http.Header{
		"Content-Type":     {"application/json"},
		"Content-Encoding": {"zstd"},
	})
}

// CreateSession calls POST /api/session and returns the new id.
func (c *TestClient) CreateSession() string {
	c.t.Helper()
	resp := c.Post("/api/session", nil)
	RequireStatus(c.t, resp, http.StatusOK)
	var out struct {
		SessionID string `json:"session_id"`
	}
	ParseJSON(c.t, resp, &out)
	if out.SessionID == "" {
		c.t.Fatal("POST /api/session returned an empty session_id")
	}
	return out.SessionID
}

func (c *TestClient) marshal(v any) []byte {
	c.t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		c.t.Fatalf("failed to marshal body: %v", err)
	}
	return b
}

// ParseJSON decodes the response body as JSON into v and closes the body.
func ParseJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("failed to decode response JSON: %v. Body: %s", err, body)
	}
}

// RequireStatus fails the test, printing the body, unless the status matches.
// On a match the body is left unread.
func RequireStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d. Body: %s", expected, resp.StatusCode, body)
	}
}
