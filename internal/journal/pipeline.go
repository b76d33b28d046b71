package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/models"
	"github.com/journalforest/forest-backend/internal/tree"
)

// NewPromptsLimit caps how many generated prompts an entry response carries.
const NewPromptsLimit = 3

// Warnings attached to an EntryResult when a best-effort step degraded.
const (
	WarnSemanticIndex    = "semantic_index_unavailable"
	WarnHistory          = "session_history_unavailable"
	WarnPromptGeneration = "prompt_generation_failed"
	WarnPromptCache      = "prompt_cache_not_updated"
)

// SubmitRequest is one journal entry submission.
type SubmitRequest struct {
	SessionID string
	PromptID  *string
	Text      string
}

// Deps are the Pipeline's collaborators. Trees and Now may be nil.
type Deps struct {
	Store     Store
	Index     Index
	Analyzer  Analyzer
	Generator Generator
	Trees     *tree.Assigner
	Now       Clock
	// StreakLocation decides which calendar day an entry counts toward.
	StreakLocation *time.Location
}

// Pipeline orchestrates an entry submission.
type Pipeline struct {
	store     Store
	index     Index
	analyzer  Analyzer
	generator Generator
	trees     *tree.Assigner
	clock     Clock
	loc       *time.Location
	history   *HistoryAssembler
}

func NewPipeline(d Deps) *Pipeline {
	trees := d.Trees
	if trees == nil {
		trees = tree.NewAssigner(nil)
	}
	loc := d.StreakLocation
	if loc == nil {
		loc = time.UTC
	}
	return &Pipeline{
		store:     d.Store,
		index:     d.Index,
		analyzer:  d.Analyzer,
		generator: d.Generator,
		trees:     trees,
		clock:     d.Now,
		loc:       loc,
		history:   NewHistoryAssembler(d.Store, d.Index),
	}
}

// SubmitEntry analyzes and commits an entry, then refreshes the semantic
// index and the generated prompts. The entry, its analysis, its tree and the
// streak day commit together; everything after the commit is best effort and
// reported through EntryResult.Warnings.
func (p *Pipeline) SubmitEntry(ctx context.Context, req SubmitRequest) (*models.EntryResult, error) {
	ctx, span := tracer.Start(ctx, "journal.submit_entry",
		trace.WithAttributes(
			attribute.String("session.id", req.SessionID),
			attribute.Int("entry.length", len(req.Text)),
		))
	defer span.End()

	ctx = logger.WithSession(ctx, req.SessionID)
	log := logger.Ctx(ctx)

	if _, err := p.store.GetSession(ctx, req.SessionID); err != nil {
		return nil, err
	}

	// No transaction is open during the analyzer call.
	analysis, usage, err := p.analyzer.AnalyzeEntry(ctx, req.Text, req.PromptID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		log.Error("content analysis failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamAnalysis, err)
	}
	if usage == nil {
		usage = &models.Usage{}
	}

	now := p.clock.now()
	committed, err := p.store.CommitEntry(ctx, db.NewEntry{
		SessionID:  req.SessionID,
		PromptUsed: req.PromptID,
		Text:       req.Text,
		CreatedAt:  now,
		Day:        now.In(p.loc).Format(time.DateOnly),
		Analysis:   *analysis,
		Usage:      *usage,
	}, func(entryID int64) models.Tree {
		return p.trees.Assign(entryID, req.Text, analysis.Themes, analysis.Emotions)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		if errors.Is(err, db.ErrSessionNotFound) {
			return nil, err
		}
		log.Error("entry commit failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	entryID := committed.EntryID
	span.SetAttributes(attribute.Int64("entry.id", entryID))
	log = log.With("entry_id", entryID)
	log.Info("entry committed",
		"tree", committed.Tree.Type,
		"rarity", committed.Tree.Rarity,
		"streak", committed.StreakCount,
		"model", usage.Model,
		"cost_usd", usage.CostUSD.String())

	result := &models.EntryResult{
		EntryID:            entryID,
		MemorySummary:      analysis.MemorySummary,
		PatternsReflection: analysis.PatternsReflection,
		FollowUpQuestion:   analysis.FollowUpQuestion,
		Themes:             analysis.Themes,
		Emotions:           analysis.Emotions,
		NewPrompts:         []models.Prompt{},
		Tree:               committed.Tree,
		StreakUpdated:      committed.StreakCount,
	}

	if err := p.index.Store(ctx, req.SessionID, entryID, analysis.MemorySummary, entryMetadata(*analysis, now)); err != nil {
		log.Warn("semantic index write failed", "error", err)
		result.Warnings = append(result.Warnings, WarnSemanticIndex)
	} else if err := p.store.MarkIndexed(ctx, entryID, p.clock.now()); err != nil {
		// The reindex worker will store the record again.
		log.Warn("failed to mark entry indexed", "error", err)
	}

	history, err := p.history.Assemble(ctx, req.SessionID)
	if err != nil {
		log.Warn("session history unavailable", "error", err)
		result.Warnings = append(result.Warnings, WarnHistory)
		history = &models.SessionHistory{
			RecentMemories:   []string{analysis.MemorySummary},
			RelevantMemories: []string{},
			ActiveThreads:    []models.Thread{},
		}
	}

	prompts, err := p.generator.GeneratePrompts(ctx, promptBlob(analysis), history)
	if err != nil {
		log.Warn("prompt generation failed", "error", fmt.Errorf("%w: %w", ErrUpstreamGeneration, err))
		result.Warnings = append(result.Warnings, WarnPromptGeneration)
		return result, nil
	}
	selected := selectPrompts(prompts, NewPromptsLimit)
	if len(selected) == 0 {
		log.Warn("prompt generation returned no usable prompts", "returned", len(prompts))
		result.Warnings = append(result.Warnings, WarnPromptGeneration)
		return result, nil
	}
	result.NewPrompts = selected

	if err := p.store.UpsertPromptSet(ctx, req.SessionID, models.PromptSourceGenerated, selected, p.clock.now()); err != nil {
		log.Warn("failed to cache generated prompts", "error", err)
		result.Warnings = append(result.Warnings, WarnPromptCache)
	}
	return result, nil
}

// promptBlob is the generator's view of the new entry.
func promptBlob(a *models.Analysis) string {
	return a.MemorySummary + "\n" + a.FollowUpQuestion +
		"\nThemes: " + strings.Join(a.Themes, ", ") +
		"\nEmotions: " + strings.Join(a.Emotions, ", ")
}

// selectPrompts keeps the first n prompts that have both an id and text.
func selectPrompts(prompts []models.Prompt, n int) []models.Prompt {
	out := make([]models.Prompt, 0, n)
	for _, pr := range prompts {
		if len(out) == n {
			break
		}
		if strings.TrimSpace(pr.ID) == "" || strings.TrimSpace(pr.Text) == "" {
			continue
		}
		out = append(out, models.Prompt{ID: pr.ID, Text: pr.Text, Category: pr.Category})
	}
	return out
}
