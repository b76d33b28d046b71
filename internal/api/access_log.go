package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/journalforest/forest-backend/internal/clientip"
	"github.com/journalforest/forest-backend/internal/logger"
)

// maxErrorMessageLength truncates 4xx error bodies in the access log.
const maxErrorMessageLength = 200

// AccessLog writes one structured line per request through the request
// logger, so req_id is included. It must run after clientip.Middleware and
// logger.Middleware. 4xx error messages are logged; 5xx bodies are not.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		clientIP := clientip.FromRequest(r).Primary
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}
		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.statusCode,
			"bytes", lrw.bytesWritten,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP,
		}
		if lrw.statusCode >= 400 && lrw.statusCode < 500 && len(lrw.body) > 0 {
			if msg := extractErrorMessage(lrw.body); msg != "" {
				attrs = append(attrs, "err", msg)
			}
		}
		if ua := r.Header.Get("User-Agent"); ua != "" {
			attrs = append(attrs, "ua", truncate(sanitizeLogValue(ua), 100))
		}

		log := logger.Ctx(r.Context())
		if lrw.statusCode >= 500 {
			log.Error("http request", attrs...)
		} else {
			log.Info("http request", attrs...)
		}
	})
}

// sanitizeLogValue replaces control characters with spaces.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return ' '
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return s
}

// extractErrorMessage reads {"error": "..."} or falls back to the plain body.
func extractErrorMessage(body []byte) string {
	var jsonErr struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &jsonErr); err == nil && jsonErr.Error != "" {
		msg = jsonErr.Error
	}
	return truncate(sanitizeLogValue(msg), maxErrorMessageLength)
}

// loggingResponseWriter records status and size, and keeps the start of 4xx bodies.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	body         []byte
	wroteHeader  bool
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	if !lrw.wroteHeader {
		lrw.statusCode = code
		lrw.wroteHeader = true
	}
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	lrw.wroteHeader = true
	if lrw.statusCode >= 400 && lrw.statusCode < 500 {
		if room := maxErrorMessageLength + 50 - len(lrw.body); room > 0 {
			lrw.body = append(lrw.body, b[:min(room, len(b))]...)
		}
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += n
	return n, err
}

func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}
