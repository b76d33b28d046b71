package db

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/journalforest/forest-backend/internal/models"
)

// GetAnalysis loads the analysis stored for an entry.
func (db *DB) GetAnalysis(ctx context.Context, entryID int64) (*models.Analysis, *models.Usage, error) {
	var a models.Analysis
	var u models.Usage
	err := db.conn.QueryRowContext(ctx,
		`SELECT memory_summary, patterns_reflection, follow_up_question, themes, emotions, unresolved,
		        model_used, input_tokens, output_tokens, cost_usd
		 FROM entry_analysis WHERE entry_id = $1`, entryID,
	).Scan(&a.MemorySummary, &a.PatternsReflection, &a.FollowUpQuestion,
		(*pq.StringArray)(&a.Themes), (*pq.StringArray)(&a.Emotions), (*pq.StringArray)(&a.Unresolved),
		&u.Model, &u.InputTokens, &u.OutputTokens, &u.CostUSD)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &a, &u, nil
}
