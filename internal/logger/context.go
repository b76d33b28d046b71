package logger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey struct{}

// Middleware stores a request-scoped logger carrying req_id in the context.
// Must run after chi's RequestID middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := slog.Default()
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			l = l.With("req_id", reqID)
		}
		next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), l)))
	})
}

// Ctx returns the logger stored in ctx, or the default logger.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithLogger stores an enriched logger in context.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithSession adds session_id to the context logger.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return WithLogger(ctx, Ctx(ctx).With("session_id", sessionID))
}
