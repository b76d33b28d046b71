package db

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/models"
)

// NewEntry is everything the entry write set needs besides the tree.
type NewEntry struct {
	SessionID  string
	PromptUsed *string
	Text       string
	CreatedAt  time.Time
	// Day is the streak calendar day, formatted 2006-01-02.
	Day      string
	Analysis models.Analysis
	Usage    models.Usage
}

// CommittedEntry is the result of a successful entry write set.
type CommittedEntry struct {
	EntryID     int64
	Tree        models.Tree
	StreakCount int
}

// TreeFunc computes the tree once the entry id is known.
type TreeFunc func(entryID int64) models.Tree

// CommitEntry writes the entry, its analysis, its tree, the streak day and the
// session timestamp in one transaction. Nothing is written if any step fails.
func (db *DB) CommitEntry(ctx context.Context, e NewEntry, assign TreeFunc) (*CommittedEntry, error) {
	ctx, span := tracer.Start(ctx, "db.commit_entry",
		trace.WithAttributes(attribute.String("session.id", e.SessionID)))
	defer span.End()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sessionExists(ctx, tx, e.SessionID); err != nil {
		return nil, err
	}

	var entryID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO journal_entries (session_id, created_at, prompt_used, raw_text)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		e.SessionID, e.CreatedAt, e.PromptUsed, e.Text,
	).Scan(&entryID)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to insert entry: %w", err)
	}
	span.SetAttributes(attribute.Int64("entry.id", entryID))

	a := e.Analysis
	_, err = tx.ExecContext(ctx,
		`INSERT INTO entry_analysis (entry_id, memory_summary, patterns_reflection, follow_up_question,
		                             themes, emotions, unresolved, model_used, input_tokens, output_tokens, cost_usd)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entryID, a.MemorySummary, a.PatternsReflection, a.FollowUpQuestion,
		pq.Array(nonNil(a.Themes)), pq.Array(nonNil(a.Emotions)), pq.Array(nonNil(a.Unresolved)),
		e.Usage.Model, e.Usage.InputTokens, e.Usage.OutputTokens, e.Usage.CostUSD,
	)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to insert analysis: %w", err)
	}

	t := assign(entryID)
	t.EntryID = entryID
	t.SessionID = e.SessionID
	t.CreatedAt = e.CreatedAt
	_, err = tx.ExecContext(ctx,
		`INSERT INTO trees (entry_id, session_id, created_at, type, rarity, display_name)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.EntryID, t.SessionID, t.CreatedAt, t.Type, string(t.Rarity), t.DisplayName,
	)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to insert tree: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO streak_days (session_id, day) VALUES ($1, $2::date) ON CONFLICT DO NOTHING`,
		e.SessionID, e.Day,
	)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to record streak day: %w", err)
	}

	var streak int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM streak_days WHERE session_id = $1`, e.SessionID,
	).Scan(&streak); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to count streak days: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = $2 WHERE id = $1`, e.SessionID, e.CreatedAt,
	); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &CommittedEntry{EntryID: entryID, Tree: t, StreakCount: streak}, nil
}

// MemorySummary is a past entry's derived summary.
type MemorySummary struct {
	EntryID int64
	Summary string
}

// ListRecentSummaries returns the newest summaries first, id breaking ties.
func (db *DB) ListRecentSummaries(ctx context.Context, sessionID string, limit int) ([]MemorySummary, error) {
	ctx, span := tracer.Start(ctx, "db.list_recent_summaries",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT e.id, a.memory_summary
		 FROM journal_entries e
		 JOIN entry_analysis a ON a.entry_id = e.id
		 WHERE e.session_id = $1
		 ORDER BY e.created_at DESC, e.id DESC
		 LIMIT $2`, sessionID, limit)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list recent summaries: %w", err)
	}
	defer rows.Close()

	var out []MemorySummary
	for rows.Next() {
		var m MemorySummary
		if err := rows.Scan(&m.EntryID, &m.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountEntries returns ErrSessionNotFound when the session does not exist.
func (db *DB) CountEntries(ctx context.Context, sessionID string) (int, error) {
	if err := sessionExists(ctx, db.conn, sessionID); err != nil {
		return 0, err
	}
	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE session_id = $1`, sessionID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

// UnindexedEntry is an analysis missing from the semantic index.
type UnindexedEntry struct {
	EntryID   int64
	SessionID string
	CreatedAt time.Time
	Analysis  models.Analysis
}

// ListUnindexed returns the oldest analyses whose semantic record was never written.
func (db *DB) ListUnindexed(ctx context.Context, limit int) ([]UnindexedEntry, error) {
	ctx, span := tracer.Start(ctx, "db.list_unindexed")
	defer span.End()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT e.id, e.session_id, e.created_at,
		        a.memory_summary, a.patterns_reflection, a.follow_up_question, a.themes, a.emotions, a.unresolved
		 FROM entry_analysis a
		 JOIN journal_entries e ON e.id = a.entry_id
		 WHERE a.indexed_at IS NULL
		 ORDER BY a.entry_id
		 LIMIT $1`, limit)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list unindexed entries: %w", err)
	}
	defer rows.Close()

	var out []UnindexedEntry
	for rows.Next() {
		var u UnindexedEntry
		a := &u.Analysis
		if err := rows.Scan(&u.EntryID, &u.SessionID, &u.CreatedAt,
			&a.MemorySummary, &a.PatternsReflection, &a.FollowUpQuestion,
			(*pq.StringArray)(&a.Themes), (*pq.StringArray)(&a.Emotions), (*pq.StringArray)(&a.Unresolved),
		); err != nil {
			return nil, fmt.Errorf("failed to scan unindexed entry: %w", err)
		}
		out = append(out, u)
	}
	span.SetAttributes(attribute.Int("result.count", len(out)))
	return out, rows.Err()
}

// MarkIndexed records that an entry's semantic record exists.
func (db *DB) MarkIndexed(ctx context.Context, entryID int64, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE entry_analysis SET indexed_at = $2 WHERE entry_id = $1`, entryID, at)
	if err != nil {
		return fmt.Errorf("failed to mark entry indexed: %w", err)
	}
	return nil
}

// ListAnalysesSince returns a session's analyses created at or after since, oldest first.
func (db *DB) ListAnalysesSince(ctx context.Context, sessionID string, since time.Time) ([]models.WeeklyInput, error) {
	ctx, span := tracer.Start(ctx, "db.list_analyses_since",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT e.created_at, a.memory_summary, a.themes, a.emotions
		 FROM journal_entries e
		 JOIN entry_analysis a ON a.entry_id = e.id
		 WHERE e.session_id = $1 AND e.created_at >= $2
		 ORDER BY e.created_at, e.id`, sessionID, since)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []models.WeeklyInput
	for rows.Next() {
		var w models.WeeklyInput
		if err := rows.Scan(&w.CreatedAt, &w.MemorySummary,
			(*pq.StringArray)(&w.Themes), (*pq.StringArray)(&w.Emotions)); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
