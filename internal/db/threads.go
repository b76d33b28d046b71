package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/models"
)

const threadColumns = `id, session_id, thread, status, created_at, updated_at, last_seen_entry_id`

// CreateThreads inserts active threads for a session in one transaction.
func (db *DB) CreateThreads(ctx context.Context, sessionID string, texts []string, now time.Time) ([]models.Thread, error) {
	ctx, span := tracer.Start(ctx, "db.create_threads",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("thread.count", len(texts)),
		))
	defer span.End()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := sessionExists(ctx, tx, sessionID); err != nil {
		return nil, err
	}

	threads := make([]models.Thread, 0, len(texts))
	for _, text := range texts {
		th, err := scanThread(tx.QueryRowContext(ctx,
			`INSERT INTO threads (session_id, thread, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $4)
			 RETURNING `+threadColumns,
			sessionID, text, string(models.ThreadActive), now))
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to insert thread: %w", err)
		}
		threads = append(threads, *th)
	}

	if err := tx.Commit(); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return threads, nil
}

// ListThreads returns a session's threads, most recently updated first.
// A nil status lists every thread; limit <= 0 means no limit.
func (db *DB) ListThreads(ctx context.Context, sessionID string, status *models.ThreadStatus, limit int) ([]models.Thread, error) {
	ctx, span := tracer.Start(ctx, "db.list_threads",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	query := `SELECT ` + threadColumns + ` FROM threads WHERE session_id = $1`
	args := []any{sessionID}
	if status != nil {
		args = append(args, string(*status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY updated_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		if isInvalidUUIDError(err) {
			return nil, ErrSessionNotFound
		}
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	threads := []models.Thread{}
	for rows.Next() {
		th, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, *th)
	}
	return threads, rows.Err()
}

// ListActiveThreads is ListThreads restricted to active threads.
func (db *DB) ListActiveThreads(ctx context.Context, sessionID string, limit int) ([]models.Thread, error) {
	active := models.ThreadActive
	return db.ListThreads(ctx, sessionID, &active, limit)
}

// UpdateThreadStatus sets a thread's status. Any transition is allowed.
func (db *DB) UpdateThreadStatus(ctx context.Context, threadID int64, status models.ThreadStatus, now time.Time) (*models.Thread, error) {
	ctx, span := tracer.Start(ctx, "db.update_thread_status",
		trace.WithAttributes(
			attribute.Int64("thread.id", threadID),
			attribute.String("thread.status", string(status)),
		))
	defer span.End()

	th, err := scanThread(db.conn.QueryRowContext(ctx,
		`UPDATE threads SET status = $2, updated_at = $3 WHERE id = $1 RETURNING `+threadColumns,
		threadID, string(status), now))
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.String("result", "not_found"))
		return nil, ErrThreadNotFound
	}
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to update thread: %w", err)
	}
	return th, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (*models.Thread, error) {
	var th models.Thread
	var status string
	var lastSeen sql.NullInt64
	if err := row.Scan(&th.ID, &th.SessionID, &th.Thread, &status, &th.CreatedAt, &th.UpdatedAt, &lastSeen); err != nil {
		return nil, err
	}
	th.Status = models.ThreadStatus(status)
	if lastSeen.Valid {
		th.LastSeenEntryID = &lastSeen.Int64
	}
	return &th, nil
}
