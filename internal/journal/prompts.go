package journal

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/llm"
	"github.com/journalforest/forest-backend/internal/models"
)

// PromptCache serves the prompts last produced for a session. It never
// generates: repeated calls return the same prompts until an entry or
// onboarding replaces them.
type PromptCache struct {
	store Store
}

func NewPromptCache(store Store) *PromptCache {
	return &PromptCache{store: store}
}

// Today returns the generated set if there is one, else the onboarding set,
// else the built-in starter prompts, together with up to three active threads.
func (c *PromptCache) Today(ctx context.Context, sessionID string) (*models.TodayPrompts, error) {
	ctx, span := tracer.Start(ctx, "journal.today_prompts",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if _, err := c.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	out := &models.TodayPrompts{Source: models.PromptSourceStarter, Prompts: llm.StarterPrompts()}
	for _, source := range []models.PromptSource{models.PromptSourceGenerated, models.PromptSourceOnboarding} {
		set, err := c.store.GetPromptSet(ctx, sessionID, source)
		if errors.Is(err, db.ErrPromptSetNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s prompts: %w", source, err)
		}
		out.Source = source
		out.Prompts = set.Prompts
		break
	}
	span.SetAttributes(attribute.String("prompts.source", string(out.Source)))

	threads, err := c.store.ListActiveThreads(ctx, sessionID, ActiveThreadsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load active threads: %w", err)
	}
	out.ActiveThreads = threads
	return out, nil
}
