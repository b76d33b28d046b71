// Package journal holds the session-scoped flows of the service: submitting
// entries, assembling history for prompt generation, serving today's
// prompts, tracking threads and the read-side insights.
package journal

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/models"
	"github.com/journalforest/forest-backend/internal/semantic"
)

var tracer = otel.Tracer("forest/journal")

// Sentinel errors; check with errors.Is. Store lookups return
// db.ErrSessionNotFound and db.ErrThreadNotFound unchanged.
var (
	// ErrUpstreamAnalysis wraps analyzer failures. Nothing was committed.
	ErrUpstreamAnalysis = errors.New("content analysis failed")
	// ErrPersistence wraps store failures during the entry write set.
	ErrPersistence = errors.New("failed to persist entry")
	// ErrUpstreamGeneration is logged, never returned: the entry is already committed.
	ErrUpstreamGeneration = errors.New("prompt generation failed")
	// ErrInvalidStatus is a validation error for thread updates.
	ErrInvalidStatus = errors.New("invalid thread status")
)

// Store is the persistence the journal flows need. *db.DB implements it.
type Store interface {
	CreateSession(ctx context.Context, id string, now time.Time) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)

	CommitEntry(ctx context.Context, e db.NewEntry, assign db.TreeFunc) (*db.CommittedEntry, error)
	CountEntries(ctx context.Context, sessionID string) (int, error)
	ListRecentSummaries(ctx context.Context, sessionID string, limit int) ([]db.MemorySummary, error)
	ListAnalysesSince(ctx context.Context, sessionID string, since time.Time) ([]models.WeeklyInput, error)
	ListUnindexed(ctx context.Context, limit int) ([]db.UnindexedEntry, error)
	MarkIndexed(ctx context.Context, entryID int64, at time.Time) error

	CreateThreads(ctx context.Context, sessionID string, texts []string, now time.Time) ([]models.Thread, error)
	ListThreads(ctx context.Context, sessionID string, status *models.ThreadStatus, limit int) ([]models.Thread, error)
	ListActiveThreads(ctx context.Context, sessionID string, limit int) ([]models.Thread, error)
	UpdateThreadStatus(ctx context.Context, threadID int64, status models.ThreadStatus, now time.Time) (*models.Thread, error)

	UpsertPromptSet(ctx context.Context, sessionID string, source models.PromptSource, prompts []models.Prompt, now time.Time) error
	GetPromptSet(ctx context.Context, sessionID string, source models.PromptSource) (*models.PromptSet, error)

	GetGarden(ctx context.Context, sessionID string) (*models.Garden, error)
	GetTrends(ctx context.Context, sessionID string) (*models.Trends, error)
	DeleteMemories(ctx context.Context, sessionID string) (int64, error)
}

var _ Store = (*db.DB)(nil)

// Index is the semantic side index. *semantic.Index implements it.
type Index interface {
	Store(ctx context.Context, sessionID string, entryID int64, text string, md semantic.Metadata) error
	Search(ctx context.Context, query, sessionID string, exclude []int64, limit int) []string
	DeleteSession(ctx context.Context, sessionID string) error
}

var _ Index = (*semantic.Index)(nil)

// Analyzer extracts structured insight from an entry.
type Analyzer interface {
	AnalyzeEntry(ctx context.Context, text string, promptID *string) (*models.Analysis, *models.Usage, error)
}

// Generator writes prompts for the next entry. A nil history means cold start.
type Generator interface {
	GeneratePrompts(ctx context.Context, blob string, history *models.SessionHistory) ([]models.Prompt, error)
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// entryMetadata is what the semantic record carries besides the summary.
func entryMetadata(a models.Analysis, createdAt time.Time) semantic.Metadata {
	return semantic.Metadata{
		"themes":              a.Themes,
		"emotions":            a.Emotions,
		"unresolved":          a.Unresolved,
		"follow_up_question":  a.FollowUpQuestion,
		"patterns_reflection": a.PatternsReflection,
		"created_at":          createdAt.UTC().Format(time.RFC3339),
	}
}
