package journal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/journalforest/forest-backend/internal/logger"
)

// Reindexer writes semantic records for entries whose best-effort index
// write never succeeded.
type Reindexer struct {
	store     Store
	index     Index
	clock     Clock
	batchSize int
	dryRun    bool
}

func NewReindexer(store Store, index Index, clock Clock, batchSize int, dryRun bool) *Reindexer {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Reindexer{store: store, index: index, clock: clock, batchSize: batchSize, dryRun: dryRun}
}

// RunOnce processes one batch and returns how many entries were indexed.
// A failing entry is logged and left for the next run.
func (r *Reindexer) RunOnce(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "journal.reindex")
	defer span.End()

	pending, err := r.store.ListUnindexed(ctx, r.batchSize)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to list unindexed entries: %w", err)
	}
	span.SetAttributes(attribute.Int("entries.pending", len(pending)))
	if len(pending) == 0 {
		return 0, nil
	}

	indexed := 0
	for _, e := range pending {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		log := logger.Ctx(ctx).With("session_id", e.SessionID, "entry_id", e.EntryID)
		if r.dryRun {
			log.Info("[DRY-RUN] would index entry")
			continue
		}

		if err := r.index.Store(ctx, e.SessionID, e.EntryID, e.Analysis.MemorySummary, entryMetadata(e.Analysis, e.CreatedAt)); err != nil {
			log.Warn("reindex: semantic write failed", "error", err)
			continue
		}
		if err := r.store.MarkIndexed(ctx, e.EntryID, r.clock.now()); err != nil {
			log.Warn("reindex: failed to mark entry indexed", "error", err)
			continue
		}
		indexed++
	}

	span.SetAttributes(attribute.Int("entries.indexed", indexed))
	logger.Ctx(ctx).Info("reindex batch complete", "pending", len(pending), "indexed", indexed)
	return indexed, nil
}
