package journal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/models"
	"github.com/journalforest/forest-backend/internal/tree"
)

// BrainDumpAnalyzer turns an onboarding brain dump into starter prompts and threads.
type BrainDumpAnalyzer interface {
	AnalyzeBrainDump(ctx context.Context, brainDump string) (*models.BrainDumpResult, error)
}

// Onboarding handles a session's first brain dump.
type Onboarding struct {
	store    Store
	analyzer BrainDumpAnalyzer
	trees    *tree.Assigner
	clock    Clock
}

func NewOnboarding(store Store, analyzer BrainDumpAnalyzer, trees *tree.Assigner, clock Clock) *Onboarding {
	if trees == nil {
		trees = tree.NewAssigner(nil)
	}
	return &Onboarding{store: store, analyzer: analyzer, trees: trees, clock: clock}
}

// Submit stores the starter prompts as the session's onboarding set and the
// extracted threads as active threads. The initial tree uses entry id 0 and
// is not stored.
func (o *Onboarding) Submit(ctx context.Context, sessionID, brainDump string) (*models.OnboardingResult, error) {
	ctx, span := tracer.Start(ctx, "journal.onboarding",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	ctx = logger.WithSession(ctx, sessionID)
	if _, err := o.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	res, err := o.analyzer.AnalyzeBrainDump(ctx, brainDump)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "brain dump analysis failed")
		logger.Ctx(ctx).Error("brain dump analysis failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamAnalysis, err)
	}

	now := o.clock.now()
	if err := o.store.UpsertPromptSet(ctx, sessionID, models.PromptSourceOnboarding, res.StarterPrompts, now); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	threads, err := o.store.CreateThreads(ctx, sessionID, res.InitialThreads, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	initial := o.trees.Assign(0, brainDump, nil, nil)
	initial.SessionID = sessionID
	initial.CreatedAt = now

	logger.Ctx(ctx).Info("onboarding complete",
		"starter_prompts", len(res.StarterPrompts),
		"threads", len(threads),
		"initial_tree", initial.Type)
	return &models.OnboardingResult{
		StarterPrompts: res.StarterPrompts,
		ActiveThreads:  threads,
		InitialTree:    initial,
	}, nil
}
