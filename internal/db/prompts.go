package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/models"
)

// UpsertPromptSet replaces the prompt set for (session, source).
// Concurrent writers are safe; the last one wins.
func (db *DB) UpsertPromptSet(ctx context.Context, sessionID string, source models.PromptSource, prompts []models.Prompt, now time.Time) error {
	ctx, span := tracer.Start(ctx, "db.upsert_prompt_set",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("prompt.source", string(source)),
			attribute.Int("prompt.count", len(prompts)),
		))
	defer span.End()

	if prompts == nil {
		prompts = []models.Prompt{}
	}
	payload, err := json.Marshal(prompts)
	if err != nil {
		return fmt.Errorf("failed to encode prompts: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO prompts (session_id, source, created_at, prompts_json)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id, source) DO UPDATE SET
		   created_at = EXCLUDED.created_at,
		   prompts_json = EXCLUDED.prompts_json`,
		sessionID, string(source), now, string(payload))
	if err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("failed to upsert prompt set: %w", err)
	}
	return nil
}

// GetPromptSet returns ErrPromptSetNotFound when no row exists.
func (db *DB) GetPromptSet(ctx context.Context, sessionID string, source models.PromptSource) (*models.PromptSet, error) {
	ctx, span := tracer.Start(ctx, "db.get_prompt_set",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("prompt.source", string(source)),
		))
	defer span.End()

	ps := models.PromptSet{SessionID: sessionID, Source: source}
	var payload []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT created_at, prompts_json FROM prompts WHERE session_id = $1 AND source = $2`,
		sessionID, string(source),
	).Scan(&ps.CreatedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUIDError(err) {
		return nil, ErrPromptSetNotFound
	}
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get prompt set: %w", err)
	}
	if err := json.Unmarshal(payload, &ps.Prompts); err != nil {
		return nil, fmt.Errorf("failed to decode prompts: %w", err)
	}
	return &ps, nil
}
