package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// TestCompressionMiddleware tests that gzip compression is applied to responses
func TestCompressionMiddleware(t *testing.T) {
	handler := newHarness(t, 0).handler

	t.Run("compresses JSON responses when client accepts gzip", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if ce := w.Header().Get("Content-Encoding"); ce != "gzip" {
			t.Errorf("expected Content-Encoding: gzip, got %q", ce)
		}

		reader, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("failed to create gzip reader: %v", err)
		}
		defer reader.Close()
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("failed to decompress response: %v", err)
		}
		if !strings.Contains(string(decompressed), "healthy") {
			t.Errorf("expected decompressed body to contain 'healthy', got: %s", decompressed)
		}
	})

	t.Run("does not compress when client does not accept gzip", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if ce := w.Header().Get("Content-Encoding"); ce == "gzip" {
			t.Error("expected no gzip Content-Encoding when client does not accept it")
		}
		if !strings.Contains(w.Body.String(), "healthy") {
			t.Errorf("expected plain body, got: %s", w.Body.String())
		}
	})
}

func TestDecompressMiddleware(t *testing.T) {
	payload := []byte(`{"text":"decoded"}`)

	echo := decompressMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Encoding") != "" {
			t.Error("Content-Encoding should be stripped after decoding")
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		respondJSON(w, http.StatusOK, body)
	}))

	tests := []struct {
		name     string
		encoding string
		body     func(t *testing.T) []byte
		status   int
	}{
		{"identity", "", func(t *testing.T) []byte { return payload }, http.StatusOK},
		{"explicit identity", "identity", func(t *testing.T) []byte { return payload }, http.StatusOK},
		{"zstd", "zstd", func(t *testing.T) []byte {
			enc, err := zstd.NewWriter(nil)
			if err != nil {
				t.Fatal(err)
			}
			defer enc.Close()
			return enc.EncodeAll(payload, nil)
		}, http.StatusOK},
		{"brotli", "br", func(t *testing.T) []byte {
			var buf bytes.Buffer
			w := brotli.NewWriter(&buf)
			w.Write(payload)
			w.Close()
			return buf.Bytes()
		}, http.StatusOK},
		{"gzip uppercase header", "GZIP", func(t *testing.T) []byte {
			var buf bytes.Buffer
			w := gzip.NewWriter(&buf)
			w.Write(payload)
			w.Close()
			return buf.Bytes()
		}, http.StatusOK},
		{"corrupt gzip", "gzip", func(t *testing.T) []byte { return []byte("not gzip") }, http.StatusBadRequest},
		{"unsupported", "deflate", func(t *testing.T) []byte { return payload }, http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewReader(tt.body(t)))
			req.Header.Set("Content-Type", "application/json")
			if tt.encoding != "" {
				req.Header.Set("Content-Encoding", tt.encoding)
			}
			w := httptest.NewRecorder()
			echo.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.status == http.StatusOK && !strings.Contains(w.Body.String(), "decoded") {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

// A compressed entry goes through the full route, including the body cap
// which applies to the decoded stream.
func TestCompressedEntryRoute(t *testing.T) {
	h := newHarness(t, 0)
	sid := h.createSession(t)

	compress := func(t *testing.T, v any) []byte {
		t.Helper()
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			t.Fatal(err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/entries",
		bytes.NewReader(compress(t, map[string]string{"session_id": sid, "text": "Compressed but honest."})))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "zstd")
	w := h.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	bomb := compress(t, map[string]string{"session_id": sid, "text": strings.Repeat("z", 2*MaxRequestBody)})
	req = httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewReader(bomb))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "zstd")
	w = h.do(req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}
