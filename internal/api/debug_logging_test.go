package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/journalforest/forest-backend/internal/logger"
)

func TestDebugLoggingMiddleware(t *testing.T) {
	cleanup := logger.SetDebugForTest(true)
	defer cleanup()

	t.Run("preserves full request body for downstream handlers", func(t *testing.T) {
		payload, err := json.Marshal(map[string]any{
			"session_id": "sess-1",
			"text":       strings.Repeat("a long day. ", 2000),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(payload) <= maxDebugBodySize {
			t.Fatalf("payload must exceed maxDebugBodySize, got %d", len(payload))
		}

		var received []byte
		handler := debugLoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			received, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("POST", "/api/entries", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if !bytes.Equal(received, payload) {
			t.Errorf("downstream handler received %d bytes, want %d", len(received), len(payload))
		}
	})

	t.Run("redacts journal text", func(t *testing.T) {
		var buf bytes.Buffer
		restore := logger.SetOutputForTest(&buf)
		defer restore()

		handler := debugLoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.Copy(io.Discard, r.Body)
			respondJSON(w, http.StatusOK, map[string]any{
				"new_prompts": []map[string]string{{"id": "p1", "text": "What helped today?"}},
			})
		}))

		body := `{"session_id":"sess-1","text":"my secret diary","nested":{"brain_dump":"also secret"}}`
		req := httptest.NewRequest("POST", "/api/entries", strings.NewReader(body))
		handler.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		for _, secret := range []string{"my secret diary", "also secret", "What helped today?"} {
			if strings.Contains(out, secret) {
				t.Errorf("log contains %q:\n%s", secret, out)
			}
		}
		if !strings.Contains(out, "sess-1") || !strings.Contains(out, "redacted 15 chars") {
			t.Errorf("expected redacted request body in log:\n%s", out)
		}
		if !strings.Contains(out, "response body") {
			t.Errorf("expected response body line:\n%s", out)
		}
	})

	t.Run("skips work when debug is off", func(t *testing.T) {
		off := logger.SetDebugForTest(false)
		defer off()

		var buf bytes.Buffer
		restore := logger.SetOutputForTest(&buf)
		defer restore()

		handler := debugLoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/entries", strings.NewReader(`{}`)))
		if buf.Len() != 0 {
			t.Errorf("unexpected log output: %s", buf.String())
		}
	})
}

func TestDebugBody(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      string
		truncated bool
	}{
		{"empty", "", "", false},
		{"not json", "hello", "<non-JSON body, 5 bytes>", false},
		{"plain json", `{"status":"ok"}`, `{"status":"ok"}`, false},
		{"array of prompts", `[{"text":"abc"}]`, `[{"text":"[redacted 3 chars]"}]`, false},
		{"non-string text kept", `{"text":3}`, `{"text":3}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := debugBody([]byte(tt.in))
			if got != tt.want || truncated != tt.truncated {
				t.Errorf("debugBody(%q) = %q, %v; want %q, %v", tt.in, got, truncated, tt.want, tt.truncated)
			}
		})
	}
}
