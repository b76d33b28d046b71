package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/journalforest/forest-backend/internal/logger"
)

// maxDebugBodySize is the maximum size of request/response bodies to log
const maxDebugBodySize = 10 * 1024

// redactedFields hold what the user wrote. They never reach the logs, even at debug.
var redactedFields = map[string]bool{
	"text":       true,
	"brain_dump": true,
}

// debugLoggingMiddleware logs request and response bodies when debug logging
// is enabled, with journal text redacted. It must run after decompression.
func debugLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !logger.IsDebug() {
			next.ServeHTTP(w, r)
			return
		}
		log := logger.Ctx(r.Context())

		if r.Body != nil && r.ContentLength != 0 {
			// Peek at most MaxRequestBody bytes; downstream still reads the whole
			// stream and enforces its own limit.
			head, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBody))
			r.Body = readCloser{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
			if err == nil {
				body, truncated := debugBody(head)
				log.Debug("request body",
					"method", r.Method,
					"path", r.URL.Path,
					"body", body,
					"truncated", truncated,
				)
			}
		}

		ww := &responseCapture{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		body, truncated := debugBody(ww.body.Bytes())
		log.Debug("response body",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"body", body,
			"truncated", truncated || ww.truncated,
		)
	})
}

// debugBody redacts journal text from JSON bodies and caps the result.
// Non-JSON bodies are logged only by size.
func debugBody(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "<non-JSON body, " + strconv.Itoa(len(raw)) + " bytes>", false
	}
	out, err := json.Marshal(redact(v))
	if err != nil {
		return "<unloggable body>", false
	}
	if len(out) > maxDebugBodySize {
		return string(out[:maxDebugBodySize]), true
	}
	return string(out), false
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if s, ok := val.(string); ok && redactedFields[k] {
				t[k] = "[redacted " + strconv.Itoa(len([]rune(s))) + " chars]"
				continue
			}
			t[k] = redact(val)
		}
	case []any:
		for i := range t {
			t[i] = redact(t[i])
		}
	}
	return v
}

type readCloser struct {
	io.Reader
	io.Closer
}

// responseCapture keeps up to maxDebugBodySize bytes of the response.
type responseCapture struct {
	http.ResponseWriter
	body      bytes.Buffer
	status    int
	truncated bool
}

func (w *responseCapture) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseCapture) Write(b []byte) (int, error) {
	if remaining := maxDebugBodySize - w.body.Len(); remaining > 0 {
		if len(b) > remaining {
			w.body.Write(b[:remaining])
			w.truncated = true
		} else {
			w.body.Write(b)
		}
	} else if len(b) > 0 {
		w.truncated = true
	}
	return w.ResponseWriter.Write(b)
}
