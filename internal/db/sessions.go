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

// CreateSession inserts a new session row.
func (db *DB) CreateSession(ctx context.Context, id string, now time.Time) (*models.Session, error) {
	ctx, span := tracer.Start(ctx, "db.create_session",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	s := models.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES ($1, $2, $2)`, id, now)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

// GetSession returns ErrSessionNotFound for unknown or malformed ids.
func (db *DB) GetSession(ctx context.Context, id string) (*models.Session, error) {
	ctx, span := tracer.Start(ctx, "db.get_session",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	var s models.Session
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUIDError(err) {
		span.SetAttributes(attribute.String("result", "not_found"))
		return nil, ErrSessionNotFound
	}
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// sessionExists runs inside the caller's transaction.
func sessionExists(ctx context.Context, q querier, id string) error {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists)
	if isInvalidUUIDError(err) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check session existence: %w", err)
	}
	if !exists {
		return ErrSessionNotFound
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
