package journal

import (
	"context"

	"github.com/google/uuid"

	"github.com/journalforest/forest-backend/internal/models"
)

// Sessions creates and looks up sessions and answers per-session reads that
// need no orchestration.
type Sessions struct {
	store Store
	clock Clock
}

func NewSessions(store Store, clock Clock) *Sessions {
	return &Sessions{store: store, clock: clock}
}

func (s *Sessions) Create(ctx context.Context) (*models.Session, error) {
	return s.store.CreateSession(ctx, uuid.NewString(), s.clock.now())
}

func (s *Sessions) Get(ctx context.Context, id string) (*models.Session, error) {
	return s.store.GetSession(ctx, id)
}

func (s *Sessions) CountEntries(ctx context.Context, id string) (int, error) {
	return s.store.CountEntries(ctx, id)
}

func (s *Sessions) Garden(ctx context.Context, id string) (*models.Garden, error) {
	return s.store.GetGarden(ctx, id)
}
