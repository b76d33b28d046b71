package journal

import (
	"context"
	"fmt"

	"github.com/journalforest/forest-backend/internal/models"
)

// Threads manages thread status. Any status may move to any other.
type Threads struct {
	store Store
	clock Clock
}

func NewThreads(store Store, clock Clock) *Threads {
	return &Threads{store: store, clock: clock}
}

// UpdateStatus returns db.ErrThreadNotFound for unknown threads.
func (t *Threads) UpdateStatus(ctx context.Context, threadID int64, status models.ThreadStatus) (*models.Thread, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return t.store.UpdateThreadStatus(ctx, threadID, status, t.clock.now())
}

// List returns a session's threads, optionally filtered by status.
func (t *Threads) List(ctx context.Context, sessionID string, status *models.ThreadStatus) ([]models.Thread, error) {
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
	}
	if _, err := t.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return t.store.ListThreads(ctx, sessionID, status, 0)
}
