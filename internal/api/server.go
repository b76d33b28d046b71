// Package api is the HTTP surface of the journaling service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/journalforest/forest-backend/internal/clientip"
	"github.com/journalforest/forest-backend/internal/journal"
	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/ratelimit"
)

const (
	// MaxRequestBody bounds every JSON request body after decompression.
	MaxRequestBody = 256 << 10
	// HealthTimeout bounds the database ping behind /health.
	HealthTimeout = 2 * time.Second
	// GlobalRequestsPerMinute is the per-client-IP limit across the API.
	GlobalRequestsPerMinute = 300
)

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the HTTP-facing settings.
type Config struct {
	AllowedOrigins []string
	// EntryLimiter limits entry submissions per session. Nil means unlimited.
	EntryLimiter ratelimit.RateLimiter
	// GlobalLimiter limits every /api request per client IP. Nil means unlimited.
	GlobalLimiter ratelimit.RateLimiter
}

// Server holds dependencies for API handlers
type Server struct {
	db     Pinger
	svc    *journal.Services
	config Config
}

func NewServer(database Pinger, svc *journal.Services, config Config) *Server {
	if config.EntryLimiter == nil {
		config.EntryLimiter = ratelimit.Unlimited{}
	}
	if config.GlobalLimiter == nil {
		config.GlobalLimiter = ratelimit.Unlimited{}
	}
	return &Server{db: database, svc: svc, config: config}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(clientip.Middleware)
	r.Use(logger.Middleware)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Encoding", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(SpanEnricher)
	r.Use(middleware.Compress(5, "application/json"))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleRoot)

	r.Route("/api", func(r chi.Router) {
		r.Use(ratelimit.Middleware(s.config.GlobalLimiter))
		r.Use(decompressMiddleware())
		r.Use(validateContentType)
		r.Use(debugLoggingMiddleware)

		r.Post("/session", s.handleCreateSession)
		r.Get("/session/{sessionID}", s.handleGetSession)

		r.Post("/onboarding", withMaxBody(MaxRequestBody, s.handleOnboarding))
		r.Get("/prompts/today", s.handleTodayPrompts)
		r.Post("/entries", withMaxBody(MaxRequestBody, s.handleCreateEntry))
		r.Get("/num_entries", s.handleNumEntries)
		r.Get("/garden", s.handleGarden)

		r.Get("/threads", s.handleListThreads)
		r.Post("/threads/{threadID}", withMaxBody(MaxRequestBody, s.handleUpdateThread))

		r.Get("/insights/trends", s.handleTrends)
		r.Get("/insights/weekly", s.handleWeeklyInsights)

		r.Delete("/memories", s.handleDeleteMemories)

		r.Post("/client-errors", withMaxBody(MaxRequestBody, s.handleReportClientErrors))
	})

	return otelhttp.NewHandler(r, "forest-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), HealthTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		logger.Ctx(ctx).Error("health check: database unreachable", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Journal a Forest API",
		"version": "0.1.0",
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// withMaxBody caps the request body of a single route.
func withMaxBody(limit int64, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		h(w, r)
	}
}
