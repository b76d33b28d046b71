package ratelimit

import (
	"net/http"

	"github.com/journalforest/forest-backend/internal/clientip"
	"github.com/journalforest/forest-backend/internal/logger"
)

// KeyFunc picks the bucket for a request. An empty key falls back to the
// client IP key set by clientip.Middleware.
type KeyFunc func(*http.Request) string

// Middleware limits requests by client IP.
func Middleware(limiter RateLimiter) func(http.Handler) http.Handler {
	return MiddlewareWithKey(limiter, nil)
}

// MiddlewareWithKey limits requests by the key keyFunc returns.
func MiddlewareWithKey(limiter RateLimiter, keyFunc KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var key string
			if keyFunc != nil {
				key = keyFunc(r)
			}
			if key == "" {
				key = "ip:" + clientip.FromRequest(r).RateLimitKey
			}

			if !limiter.Allow(r.Context(), key) {
				logger.Ctx(r.Context()).Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded, please try again later"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionKey buckets requests by a session id read with get.
func SessionKey(get func(*http.Request) string) KeyFunc {
	return func(r *http.Request) string {
		if id := get(r); id != "" {
			return "session:" + id
		}
		return ""
	}
}
