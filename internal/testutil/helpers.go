package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

// JSONRequest builds an in-process request carrying body as JSON.
// A nil body sends an empty one.
func JSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal %s %s body: %v", method, target, err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ParseJSONResponse decodes a recorded response into v.
func ParseJSONResponse(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Errorf("status = %d, want %d (body %q)", w.Code, want, w.Body.String())
	}
}

// AssertErrorResponse checks the status and the message in {"error": ...}.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	AssertStatus(t, w, status)
	var body struct {
		Error string `json:"error"`
	}
	ParseJSONResponse(t, w, &body)
	if body.Error != message {
		t.Errorf("error = %q, want %q", body.Error, message)
	}
}

// CreateTestSession inserts a session row directly and returns its id.
func CreateTestSession(t *testing.T, env *TestEnvironment) string {
	t.Helper()
	id := uuid.NewString()
	if _, err := env.DB.CreateSession(env.Ctx, id, time.Now().UTC()); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return id
}
