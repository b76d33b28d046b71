package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/journalforest/forest-backend/internal/journal"
	"github.com/journalforest/forest-backend/internal/logger"
)

var workerTracer = otel.Tracer("forest/worker")

var workerDryRun bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the semantic reindex worker",
	Long: `Polls for entries whose semantic record was never written and stores
them. Interval and batch size come from REINDEX_POLL_INTERVAL and
REINDEX_BATCH_SIZE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(cmd.Context())
	},
}

func init() {
	workerCmd.Flags().BoolVar(&workerDryRun, "dry-run", false, "log pending entries without indexing them")
	rootCmd.AddCommand(workerCmd)
}

// Worker drives a Reindexer on a fixed interval.
type Worker struct {
	reindexer *journal.Reindexer
	interval  time.Duration
}

func runWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting semantic reindex worker")

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry for worker", "error", err)
	} else {
		defer otelShutdown()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dryRun := cfg.Reindex.DryRun || workerDryRun
	logger.Info("worker configuration loaded",
		"poll_interval", cfg.Reindex.PollInterval,
		"batch_size", cfg.Reindex.BatchSize,
		"dry_run", dryRun,
	)
	if dryRun {
		logger.Info("DRY-RUN MODE ENABLED - no entries will be indexed")
	}

	database, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	index, err := newIndex(cfg)
	if err != nil {
		return err
	}

	w := &Worker{
		reindexer: journal.NewReindexer(database, index, time.Now, cfg.Reindex.BatchSize, dryRun),
		interval:  cfg.Reindex.PollInterval,
	}
	w.Run(ctx)
	logger.Info("worker stopped")
	return nil
}

// Run executes the main worker loop until ctx ends.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run immediately on startup
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	ctx, span := workerTracer.Start(ctx, "worker.run_once")
	defer span.End()

	n, err := w.reindexer.RunOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("reindex cycle failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetAttributes(attribute.Int("entries.indexed", n))
}
