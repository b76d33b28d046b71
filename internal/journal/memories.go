package journal

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/logger"
)

// Memories erases what a session has written.
type Memories struct {
	store Store
	index Index
}

func NewMemories(store Store, index Index) *Memories {
	return &Memories{store: store, index: index}
}

// Delete removes entries, analyses, trees, streak days, threads and the
// generated prompts, then the semantic records. The session and its
// onboarding prompts remain. Returns the number of entries deleted.
func (m *Memories) Delete(ctx context.Context, sessionID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "journal.delete_memories",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	ctx = logger.WithSession(ctx, sessionID)
	n, err := m.store.DeleteMemories(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("entries.deleted", n))

	if err := m.index.DeleteSession(ctx, sessionID); err != nil {
		// Orphaned records are unreachable: their entry ids no longer exist
		// and new ids never repeat.
		logger.Ctx(ctx).Warn("failed to delete semantic records", "error", err)
	}
	logger.Ctx(ctx).Info("memories deleted", "entries", n)
	return n, nil
}
