package db

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/models"
)

// DeleteMemories removes everything a session has written except the session
// row and its onboarding prompts. Analyses and trees go with their entries.
// Semantic records live outside Postgres and must be deleted by the caller.
func (db *DB) DeleteMemories(ctx context.Context, sessionID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "db.delete_memories",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM streak_days WHERE session_id = $1`, sessionID); err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to delete streak days: %w", err)
	}

	// Threads first: last_seen_entry_id points at entries.
	if _, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE session_id = $1`, sessionID); err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to delete threads: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM journal_entries WHERE session_id = $1`, sessionID)
	if err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM prompts WHERE session_id = $1 AND source = $2`,
		sessionID, string(models.PromptSourceGenerated),
	); err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to delete generated prompts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		recordSpanError(span, err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	span.SetAttributes(attribute.Int64("entries.deleted", deleted))
	return deleted, nil
}
