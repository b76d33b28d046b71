package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/spf13/cobra"

	"github.com/journalforest/forest-backend/internal/api"
	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serves the journaling API. Configuration comes from the environment
(DATABASE_URL, LLM_PROVIDER, SEMANTIC_STORE, ALLOWED_ORIGINS, ...).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Access via: fly proxy 6060:6060
	if os.Getenv("ENABLE_PPROF") == "true" {
		go startPprofServer()
	}

	// Configured via OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
	} else {
		defer otelShutdown()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	svc, err := buildServices(cfg, database)
	if err != nil {
		return err
	}

	var entryLimiter ratelimit.RateLimiter = ratelimit.Unlimited{}
	if cfg.RateLimit > 0 {
		l := ratelimit.PerMinute(cfg.RateLimit)
		defer l.Stop()
		entryLimiter = l
	}
	globalLimiter := ratelimit.PerMinute(api.GlobalRequestsPerMinute)
	defer globalLimiter.Stop()

	server := api.NewServer(database, svc, api.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		EntryLimiter:   entryLimiter,
		GlobalLimiter:  globalLimiter,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.SetupRoutes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"port", cfg.Port,
			"version", version,
			"llm_provider", cfg.LLM.Provider,
			"semantic_store", cfg.Semantic.Store,
			"streak_timezone", cfg.Streak.String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// startPprofServer listens on localhost only.
func startPprofServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	addr := "127.0.0.1:6060"
	logger.Info("pprof debug server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("pprof server failed", "error", err)
	}
}
