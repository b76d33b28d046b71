package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/testutil"
)

func TestHandleReportClientErrors(t *testing.T) {
	h := newHarness(t, 0)

	tooMany := make([]map[string]any, maxClientErrors+1)
	for i := range tooMany {
		tooMany[i] = map[string]any{"message": "boom"}
	}

	tests := []struct {
		name    string
		body    any
		status  int
		message string
	}{
		{
			name: "valid report",
			body: map[string]any{
				"category":   "render",
				"session_id": "abc-123",
				"errors": []map[string]any{
					{"message": "Cannot read properties of undefined", "component": "GardenView", "stack": "at GardenView"},
					{"message": "Request failed", "endpoint": "/api/entries", "status": 502},
				},
				"context": map[string]string{"url": "/garden", "user_agent": "TestAgent/1.0"},
			},
			status: http.StatusOK,
		},
		{
			name:    "missing category",
			body:    map[string]any{"errors": []map[string]any{{"message": "x"}}},
			status:  http.StatusBadRequest,
			message: "category is required",
		},
		{
			name:    "empty errors",
			body:    map[string]any{"category": "render", "errors": []any{}},
			status:  http.StatusBadRequest,
			message: "errors must not be empty",
		},
		{
			name:    "too many errors",
			body:    map[string]any{"category": "render", "errors": tooMany},
			status:  http.StatusBadRequest,
			message: "too many errors (max 50)",
		},
		{
			name:    "error without message",
			body:    map[string]any{"category": "network", "errors": []map[string]any{{"status": 500}}},
			status:  http.StatusBadRequest,
			message: "errors[0].message is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(testutil.JSONRequest(t, http.MethodPost, "/api/client-errors", tt.body))
			if tt.message != "" {
				testutil.AssertErrorResponse(t, w, tt.status, tt.message)
				return
			}
			testutil.AssertStatus(t, w, tt.status)
		})
	}
}

func TestReportClientErrorsLogsEachError(t *testing.T) {
	var buf bytes.Buffer
	restore := logger.SetOutputForTest(&buf)
	defer restore()

	h := newHarness(t, 0)
	w := h.do(testutil.JSONRequest(t, http.MethodPost, "/api/client-errors", map[string]any{
		"category":   "network",
		"session_id": "sess-9",
		"errors": []map[string]any{
			{"message": "first\nfailure"},
			{"message": "second failure", "stack": strings.Repeat("s", 2*maxClientStackPreview)},
		},
	}))
	testutil.AssertStatus(t, w, http.StatusOK)

	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]any
		if err := json.Unmarshal(raw, &line); err != nil {
			t.Fatalf("bad log line %q: %v", raw, err)
		}
		if line["msg"] == "client error" {
			lines = append(lines, line)
		}
	}
	if len(lines) != 2 {
		t.Fatalf("got %d client error lines, want 2", len(lines))
	}
	if lines[0]["error_message"] != "first failure" || lines[0]["session_id"] != "sess-9" {
		t.Errorf("first line = %v", lines[0])
	}
	if stack, _ := lines[1]["stack_preview"].(string); len(stack) != maxClientStackPreview+len("...") {
		t.Errorf("stack preview length = %d", len(stack))
	}
}
