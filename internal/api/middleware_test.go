package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/journalforest/forest-backend/internal/clientip"
	"github.com/journalforest/forest-backend/internal/logger"
)

func TestValidateContentType(t *testing.T) {
	ok := validateContentType(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		want        int
	}{
		{"json", http.MethodPost, `{}`, "application/json", http.StatusNoContent},
		{"json with charset", http.MethodPost, `{}`, "application/json; charset=utf-8", http.StatusNoContent},
		{"missing header", http.MethodPost, `{}`, "", http.StatusUnsupportedMediaType},
		{"form", http.MethodPost, `a=b`, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"malformed", http.MethodPost, `{}`, "application/", http.StatusUnsupportedMediaType},
		{"bodyless post", http.MethodPost, "", "", http.StatusNoContent},
		{"get ignored", http.MethodGet, "", "text/plain", http.StatusNoContent},
		{"delete ignored", http.MethodDelete, "", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/entries", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			ok.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	restore := logger.SetOutputForTest(&buf)
	defer restore()

	handler := middleware.RequestID(clientip.Middleware(logger.Middleware(AccessLog(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusBadRequest, "text is\nrequired")
		})))))

	req := httptest.NewRequest(http.MethodPost, "/api/entries", nil)
	req.RemoteAddr = "203.0.113.9:4444"
	req.Header.Set("User-Agent", "forest-web/1.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	checks := map[string]any{
		"msg":       "http request",
		"level":     "INFO",
		"method":    "POST",
		"path":      "/api/entries",
		"status":    float64(400),
		"client_ip": "203.0.113.9",
		"err":       "text is required",
		"ua":        "forest-web/1.0",
	}
	for k, want := range checks {
		if line[k] != want {
			t.Errorf("%s = %v, want %v", k, line[k], want)
		}
	}
	if line["req_id"] == nil {
		t.Error("missing req_id")
	}
}

func TestAccessLogServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	restore := logger.SetOutputForTest(&buf)
	defer restore()

	handler := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusInternalServerError, "Failed to save entry")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/garden", nil))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatal(err)
	}
	if line["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", line["level"])
	}
	if _, ok := line["err"]; ok {
		t.Error("5xx bodies must not be logged")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"toolong", 3, "too..."},
		{"ünïcode", 2, "ün..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestRoot(t *testing.T) {
	h := newHarness(t, 0)
	w := h.do(httptest.NewRequest(http.MethodGet, "/", nil))
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["message"] != "Journal a Forest API" || body["version"] != "0.1.0" {
		t.Errorf("root = %v", body)
	}
}
