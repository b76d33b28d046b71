package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/models"
)

type memEntry struct {
	id        int64
	sessionID string
	createdAt time.Time
	prompt    *string
	text      string
	analysis  models.Analysis
	usage     models.Usage
	tree      models.Tree
	indexed   bool
}

type promptKey struct {
	session string
	source  models.PromptSource
}

// MemStore is an in-memory stand-in for *db.DB with the same observable
// behavior for the journal flows. Fail* fields inject errors.
type MemStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	entries  []*memEntry
	streaks  map[string]map[string]bool
	threads  []*models.Thread
	prompts  map[promptKey]models.PromptSet
	nextID   int64
	threadID int64

	FailCommit  error
	FailUpsert  error
	FailRecent  error
	UpsertCalls int
}

func NewMemStore() *MemStore {
	return &MemStore{
		sessions: map[string]models.Session{},
		streaks:  map[string]map[string]bool{},
		prompts:  map[promptKey]models.PromptSet{},
	}
}

func (m *MemStore) CreateSession(_ context.Context, id string, now time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return nil, errors.New("duplicate session id")
	}
	s := models.Session{ID: id, CreatedAt: now, UpdatedAt: now}
	m.sessions[id] = s
	return &s, nil
}

func (m *MemStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, db.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemStore) exists(id string) error {
	if _, ok := m.sessions[id]; !ok {
		return db.ErrSessionNotFound
	}
	return nil
}

func (m *MemStore) CommitEntry(_ context.Context, e db.NewEntry, assign db.TreeFunc) (*db.CommittedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(e.SessionID); err != nil {
		return nil, err
	}
	if m.FailCommit != nil {
		return nil, m.FailCommit
	}

	m.nextID++
	t := assign(m.nextID)
	t.EntryID = m.nextID
	t.SessionID = e.SessionID
	t.CreatedAt = e.CreatedAt

	m.entries = append(m.entries, &memEntry{
		id: m.nextID, sessionID: e.SessionID, createdAt: e.CreatedAt, prompt: e.PromptUsed,
		text: e.Text, analysis: e.Analysis, usage: e.Usage, tree: t,
	})
	if m.streaks[e.SessionID] == nil {
		m.streaks[e.SessionID] = map[string]bool{}
	}
	m.streaks[e.SessionID][e.Day] = true

	s := m.sessions[e.SessionID]
	s.UpdatedAt = e.CreatedAt
	m.sessions[e.SessionID] = s

	return &db.CommittedEntry{EntryID: m.nextID, Tree: t, StreakCount: len(m.streaks[e.SessionID])}, nil
}

func (m *MemStore) CountEntries(_ context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(sessionID); err != nil {
		return 0, err
	}
	return len(m.sessionEntries(sessionID)), nil
}

// sessionEntries returns the session's entries newest first.
func (m *MemStore) sessionEntries(sessionID string) []*memEntry {
	var out []*memEntry
	for _, e := range m.entries {
		if e.sessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.After(out[j].createdAt)
		}
		return out[i].id > out[j].id
	})
	return out
}

func (m *MemStore) ListRecentSummaries(_ context.Context, sessionID string, limit int) ([]db.MemorySummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRecent != nil {
		return nil, m.FailRecent
	}
	var out []db.MemorySummary
	for _, e := range m.sessionEntries(sessionID) {
		if len(out) == limit {
			break
		}
		out = append(out, db.MemorySummary{EntryID: e.id, Summary: e.analysis.MemorySummary})
	}
	return out, nil
}

func (m *MemStore) ListAnalysesSince(_ context.Context, sessionID string, since time.Time) ([]models.WeeklyInput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.sessionEntries(sessionID)
	var out []models.WeeklyInput
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.createdAt.Before(since) {
			continue
		}
		out = append(out, models.WeeklyInput{
			CreatedAt:     e.createdAt,
			MemorySummary: e.analysis.MemorySummary,
			Themes:        e.analysis.Themes,
			Emotions:      e.analysis.Emotions,
		})
	}
	return out, nil
}

func (m *MemStore) ListUnindexed(_ context.Context, limit int) ([]db.UnindexedEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.UnindexedEntry
	for _, e := range m.entries {
		if len(out) == limit {
			break
		}
		if !e.indexed {
			out = append(out, db.UnindexedEntry{EntryID: e.id, SessionID: e.sessionID, CreatedAt: e.createdAt, Analysis: e.analysis})
		}
	}
	return out, nil
}

func (m *MemStore) MarkIndexed(_ context.Context, entryID int64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.id == entryID {
			e.indexed = true
		}
	}
	return nil
}

// Indexed reports whether MarkIndexed was called for the entry.
func (m *MemStore) Indexed(entryID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.id == entryID {
			return e.indexed
		}
	}
	return false
}

// EntryText returns the stored raw text, or "" if the entry does not exist.
func (m *MemStore) EntryText(entryID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.id == entryID {
			return e.text
		}
	}
	return ""
}

func (m *MemStore) CreateThreads(_ context.Context, sessionID string, texts []string, now time.Time) ([]models.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(sessionID); err != nil {
		return nil, err
	}
	out := []models.Thread{}
	for _, text := range texts {
		m.threadID++
		th := &models.Thread{ID: m.threadID, SessionID: sessionID, Thread: text, Status: models.ThreadActive, CreatedAt: now, UpdatedAt: now}
		m.threads = append(m.threads, th)
		out = append(out, *th)
	}
	return out, nil
}

func (m *MemStore) ListThreads(_ context.Context, sessionID string, status *models.ThreadStatus, limit int) ([]models.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Thread
	for _, th := range m.threads {
		if th.SessionID == sessionID && (status == nil || th.Status == *status) {
			matched = append(matched, *th)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []models.Thread{}
	}
	return matched, nil
}

func (m *MemStore) ListActiveThreads(ctx context.Context, sessionID string, limit int) ([]models.Thread, error) {
	active := models.ThreadActive
	return m.ListThreads(ctx, sessionID, &active, limit)
}

func (m *MemStore) UpdateThreadStatus(_ context.Context, threadID int64, status models.ThreadStatus, now time.Time) (*models.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, th := range m.threads {
		if th.ID == threadID {
			th.Status = status
			th.UpdatedAt = now
			out := *th
			return &out, nil
		}
	}
	return nil, db.ErrThreadNotFound
}

func (m *MemStore) UpsertPromptSet(_ context.Context, sessionID string, source models.PromptSource, prompts []models.Prompt, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertCalls++
	if m.FailUpsert != nil {
		return m.FailUpsert
	}
	if err := m.exists(sessionID); err != nil {
		return err
	}
	m.prompts[promptKey{sessionID, source}] = models.PromptSet{
		SessionID: sessionID,
		Source:    source,
		CreatedAt: now,
		Prompts:   append([]models.Prompt(nil), prompts...),
	}
	return nil
}

func (m *MemStore) GetPromptSet(_ context.Context, sessionID string, source models.PromptSource) (*models.PromptSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.prompts[promptKey{sessionID, source}]
	if !ok {
		return nil, db.ErrPromptSetNotFound
	}
	return &set, nil
}

// PromptSetCount is the number of stored sets for a session.
func (m *MemStore) PromptSetCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.prompts {
		if k.session == sessionID {
			n++
		}
	}
	return n
}

func (m *MemStore) GetGarden(_ context.Context, sessionID string) (*models.Garden, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(sessionID); err != nil {
		return nil, err
	}
	g := &models.Garden{StreakDays: len(m.streaks[sessionID]), Trees: []models.Tree{}}
	for _, e := range m.sessionEntries(sessionID) {
		g.Trees = append(g.Trees, e.tree)
	}
	return g, nil
}

func (m *MemStore) GetTrends(_ context.Context, sessionID string) (*models.Trends, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(sessionID); err != nil {
		return nil, err
	}
	t := &models.Trends{
		ThemeCounts:   map[string]int{},
		EmotionCounts: map[string]int{},
		StreakDays:    len(m.streaks[sessionID]),
	}
	for _, e := range m.sessionEntries(sessionID) {
		t.EntryCount++
		for _, th := range e.analysis.Themes {
			t.ThemeCounts[th]++
		}
		for _, em := range e.analysis.Emotions {
			t.EmotionCounts[em]++
		}
	}
	return t, nil
}

func (m *MemStore) DeleteMemories(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.exists(sessionID); err != nil {
		return 0, err
	}
	var n int64
	kept := m.entries[:0]
	for _, e := range m.entries {
		if e.sessionID == sessionID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept

	threads := m.threads[:0]
	for _, th := range m.threads {
		if th.SessionID != sessionID {
			threads = append(threads, th)
		}
	}
	m.threads = threads

	delete(m.streaks, sessionID)
	delete(m.prompts, promptKey{sessionID, models.PromptSourceGenerated})
	return n, nil
}
