package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/journalforest/forest-backend/internal/models"
)

// WeeklyWindow is how far back the weekly insight looks.
const WeeklyWindow = 7 * 24 * time.Hour

// WeeklyInsighter summarizes a week of analyses.
type WeeklyInsighter interface {
	WeeklyInsights(ctx context.Context, entries []models.WeeklyInput) (*models.WeeklyInsight, error)
}

// Insights serves aggregate views over a session's analyses.
type Insights struct {
	store    Store
	insights WeeklyInsighter
	clock    Clock
}

func NewInsights(store Store, insights WeeklyInsighter, clock Clock) *Insights {
	return &Insights{store: store, insights: insights, clock: clock}
}

func (i *Insights) Trends(ctx context.Context, sessionID string) (*models.Trends, error) {
	return i.store.GetTrends(ctx, sessionID)
}

// Weekly reflects on the last seven days. A week without entries returns an
// empty insight without calling the model.
func (i *Insights) Weekly(ctx context.Context, sessionID string) (*models.WeeklyInsight, error) {
	ctx, span := tracer.Start(ctx, "journal.weekly_insights")
	defer span.End()

	if _, err := i.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	entries, err := i.store.ListAnalysesSince(ctx, sessionID, i.clock.now().Add(-WeeklyWindow))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &models.WeeklyInsight{
			Themes:          []string{},
			EmotionsSummary: map[string]int{},
		}, nil
	}

	out, err := i.insights.WeeklyInsights(ctx, entries)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamAnalysis, err)
	}
	out.EntryCount = len(entries)
	return out, nil
}
