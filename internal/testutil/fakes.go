package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/journalforest/forest-backend/internal/llm"
	"github.com/journalforest/forest-backend/internal/models"
	"github.com/journalforest/forest-backend/internal/semantic"
)

// FakeLLM behaves like llm.Mock unless an error or canned prompts are set.
// It records generator calls.
type FakeLLM struct {
	llm.Mock

	mu           sync.Mutex
	AnalyzeErr   error
	GenerateErr  error
	WeeklyErr    error
	Prompts      []models.Prompt // nil means llm.Mock's prompts
	analyzeCalls int
	histories    []*models.SessionHistory
	blobs        []string
}

func (f *FakeLLM) AnalyzeEntry(ctx context.Context, text string, promptID *string) (*models.Analysis, *models.Usage, error) {
	f.mu.Lock()
	f.analyzeCalls++
	err := f.AnalyzeErr
	f.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	return f.Mock.AnalyzeEntry(ctx, text, promptID)
}

func (f *FakeLLM) GeneratePrompts(ctx context.Context, blob string, history *models.SessionHistory) ([]models.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories = append(f.histories, history)
	f.blobs = append(f.blobs, blob)
	if f.GenerateErr != nil {
		return nil, f.GenerateErr
	}
	if f.Prompts != nil {
		return append([]models.Prompt(nil), f.Prompts...), nil
	}
	return f.Mock.GeneratePrompts(ctx, blob, history)
}

func (f *FakeLLM) WeeklyInsights(ctx context.Context, entries []models.WeeklyInput) (*models.WeeklyInsight, error) {
	if f.WeeklyErr != nil {
		return nil, f.WeeklyErr
	}
	return f.Mock.WeeklyInsights(ctx, entries)
}

// AnalyzeCalls is how many times AnalyzeEntry ran.
func (f *FakeLLM) AnalyzeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls
}

// LastHistory is the history passed to the latest GeneratePrompts call.
func (f *FakeLLM) LastHistory() *models.SessionHistory {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.histories) == 0 {
		return nil
	}
	return f.histories[len(f.histories)-1]
}

// LastBlob is the text blob passed to the latest GeneratePrompts call.
func (f *FakeLLM) LastBlob() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.blobs) == 0 {
		return ""
	}
	return f.blobs[len(f.blobs)-1]
}

// FailingIndex fails every write and finds nothing.
type FailingIndex struct{}

var errIndexDown = errors.New("semantic store unavailable")

func (FailingIndex) Store(context.Context, string, int64, string, semantic.Metadata) error {
	return errIndexDown
}

func (FailingIndex) Search(context.Context, string, string, []int64, int) []string {
	return []string{}
}

func (FailingIndex) DeleteSession(context.Context, string) error {
	return errIndexDown
}

// Clock is a settable time source. Pass clock.Now where a func() time.Time is wanted.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
