package api

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/clientip"
)

// SpanEnricher adds the client address and, for session-addressed reads, the
// session id to the request span.
func SpanEnricher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		span := trace.SpanFromContext(r.Context())
		if ip := clientip.FromRequest(r).Primary; ip != "" {
			span.SetAttributes(attribute.String("client.address", ip))
		}
		if sid := r.URL.Query().Get("session_id"); sid != "" {
			span.SetAttributes(attribute.String("session.id", sid))
		}
		next.ServeHTTP(w, r)
	})
}
