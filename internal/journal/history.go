package journal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/models"
)

// History sizes handed to the prompt generator.
const (
	RecentMemoriesLimit   = 3
	RelevantMemoriesLimit = 5
	ActiveThreadsLimit    = 3
)

// HistoryAssembler builds the SessionHistory for a session. It reads only
// derived summaries and thread metadata, never raw entry text.
type HistoryAssembler struct {
	store Store
	index Index
}

func NewHistoryAssembler(store Store, index Index) *HistoryAssembler {
	return &HistoryAssembler{store: store, index: index}
}

// Assemble returns the newest summaries, older summaries semantically close
// to the newest one, and the most recently touched active threads.
func (h *HistoryAssembler) Assemble(ctx context.Context, sessionID string) (*models.SessionHistory, error) {
	ctx, span := tracer.Start(ctx, "journal.assemble_history",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	recent, err := h.store.ListRecentSummaries(ctx, sessionID, RecentMemoriesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent memories: %w", err)
	}

	hist := &models.SessionHistory{
		RecentMemories:   make([]string, 0, len(recent)),
		RelevantMemories: []string{},
	}
	ids := make([]int64, 0, len(recent))
	for _, m := range recent {
		hist.RecentMemories = append(hist.RecentMemories, m.Summary)
		ids = append(ids, m.EntryID)
	}

	if len(recent) > 0 {
		if docs := h.index.Search(ctx, recent[0].Summary, sessionID, ids, RelevantMemoriesLimit); docs != nil {
			hist.RelevantMemories = docs
		}
	}

	hist.ActiveThreads, err = h.store.ListActiveThreads(ctx, sessionID, ActiveThreadsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load active threads: %w", err)
	}

	span.SetAttributes(
		attribute.Int("history.recent", len(hist.RecentMemories)),
		attribute.Int("history.relevant", len(hist.RelevantMemories)),
		attribute.Int("history.threads", len(hist.ActiveThreads)),
	)
	return hist, nil
}
