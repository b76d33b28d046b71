package db

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/models"
)

// GetGarden returns the streak and every tree of a session, newest first.
func (db *DB) GetGarden(ctx context.Context, sessionID string) (*models.Garden, error) {
	ctx, span := tracer.Start(ctx, "db.get_garden",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if err := sessionExists(ctx, db.conn, sessionID); err != nil {
		return nil, err
	}

	g := &models.Garden{Trees: []models.Tree{}}
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM streak_days WHERE session_id = $1`, sessionID,
	).Scan(&g.StreakDays); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to count streak days: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT entry_id, session_id, created_at, type, rarity, display_name
		 FROM trees WHERE session_id = $1
		 ORDER BY created_at DESC, entry_id DESC`, sessionID)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Tree
		var rarity string
		if err := rows.Scan(&t.EntryID, &t.SessionID, &t.CreatedAt, &t.Type, &rarity, &t.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan tree: %w", err)
		}
		t.Rarity = models.Rarity(rarity)
		g.Trees = append(g.Trees, t)
	}
	return g, rows.Err()
}

// GetTrends counts themes and emotions across all of a session's analyses.
func (db *DB) GetTrends(ctx context.Context, sessionID string) (*models.Trends, error) {
	ctx, span := tracer.Start(ctx, "db.get_trends",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	if err := sessionExists(ctx, db.conn, sessionID); err != nil {
		return nil, err
	}

	tr := &models.Trends{}
	if err := db.conn.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM journal_entries WHERE session_id = $1),
		   (SELECT COUNT(*) FROM streak_days WHERE session_id = $1)`, sessionID,
	).Scan(&tr.EntryCount, &tr.StreakDays); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}

	var err error
	if tr.ThemeCounts, err = db.countUnnested(ctx, sessionID, "themes"); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if tr.EmotionCounts, err = db.countUnnested(ctx, sessionID, "emotions"); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return tr, nil
}

// countUnnested tallies one TEXT[] column of entry_analysis. column is never user input.
func (db *DB) countUnnested(ctx context.Context, sessionID, column string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT v, COUNT(*)
		 FROM entry_analysis a
		 JOIN journal_entries e ON e.id = a.entry_id
		 CROSS JOIN LATERAL unnest(a.`+column+`) AS v
		 WHERE e.session_id = $1
		 GROUP BY v`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", column, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var v string
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		counts[v] = n
	}
	return counts, rows.Err()
}
