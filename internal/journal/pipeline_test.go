package journal_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/journal"
	"github.com/journalforest/forest-backend/internal/models"
	"github.com/journalforest/forest-backend/internal/semantic"
	"github.com/journalforest/forest-backend/internal/storage"
	"github.com/journalforest/forest-backend/internal/testutil"
	"github.com/journalforest/forest-backend/internal/tree"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	store    *testutil.MemStore
	llm      *testutil.FakeLLM
	clock    *testutil.Clock
	index    journal.Index
	pipeline *journal.Pipeline
	session  string
}

func newHarness(t *testing.T, opts ...func(*journal.Deps)) *harness {
	t.Helper()
	h := &harness{
		store: testutil.NewMemStore(),
		llm:   &testutil.FakeLLM{},
		clock: testutil.NewClock(start),
	}
	h.index = semantic.NewIndex(storage.NewMemoryStorage(), semantic.HashEmbedder{})

	deps := journal.Deps{
		Store:     h.store,
		Index:     h.index,
		Analyzer:  h.llm,
		Generator: h.llm,
		Now:       h.clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.index = deps.Index
	h.pipeline = journal.NewPipeline(deps)

	s, err := journal.NewSessions(h.store, h.clock.Now).Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	h.session = s.ID
	return h
}

func (h *harness) submit(t *testing.T, text string) *models.EntryResult {
	t.Helper()
	res, err := h.pipeline.SubmitEntry(context.Background(), journal.SubmitRequest{SessionID: h.session, Text: text})
	if err != nil {
		t.Fatalf("SubmitEntry(%q): %v", text, err)
	}
	return res
}

func TestSubmitEntryNewSession(t *testing.T) {
	h := newHarness(t)
	res := h.submit(t, "I had a long day at work.")

	if res.EntryID != 1 {
		t.Errorf("EntryID = %d, want 1", res.EntryID)
	}
	if res.StreakUpdated != 1 {
		t.Errorf("StreakUpdated = %d, want 1", res.StreakUpdated)
	}
	switch res.Tree.Rarity {
	case models.RarityCommon, models.RarityUncommon, models.RarityRare, models.RarityEpic, models.RarityLegendary:
	default:
		t.Errorf("unexpected rarity %q", res.Tree.Rarity)
	}
	if res.Tree.EntryID != 1 || res.Tree.SessionID != h.session {
		t.Errorf("tree = %+v", res.Tree)
	}

	want := tree.Assign(1, "I had a long day at work.", res.Themes, res.Emotions)
	if res.Tree.Type != want.Type || res.Tree.DisplayName != want.DisplayName || res.Tree.Rarity != want.Rarity {
		t.Errorf("tree = %+v, want %+v", res.Tree, want)
	}

	if len(res.NewPrompts) != journal.NewPromptsLimit || res.NewPrompts[0].ID != "p1" {
		t.Errorf("NewPrompts = %+v", res.NewPrompts)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if !h.store.Indexed(1) {
		t.Error("entry not marked indexed after a successful semantic write")
	}

	blob := h.llm.LastBlob()
	if !strings.HasPrefix(blob, res.MemorySummary+"\n"+res.FollowUpQuestion+"\nThemes: ") ||
		!strings.Contains(blob, "\nEmotions: "+strings.Join(res.Emotions, ", ")) {
		t.Errorf("generator blob = %q", blob)
	}
}

func TestStreakCountsDistinctDays(t *testing.T) {
	h := newHarness(t)

	if got := h.submit(t, "first").StreakUpdated; got != 1 {
		t.Fatalf("streak after first entry = %d", got)
	}
	h.clock.Advance(3 * time.Hour)
	if got := h.submit(t, "second, same day").StreakUpdated; got != 1 {
		t.Errorf("streak after same-day entry = %d, want 1", got)
	}
	h.clock.Advance(24 * time.Hour)
	if got := h.submit(t, "third, next day").StreakUpdated; got != 2 {
		t.Errorf("streak after next-day entry = %d, want 2", got)
	}

	// A gap does not reset the count.
	h.clock.Advance(10 * 24 * time.Hour)
	if got := h.submit(t, "after a break").StreakUpdated; got != 3 {
		t.Errorf("streak after gap = %d, want 3", got)
	}
}

func TestStreakFiveEntriesOneDay(t *testing.T) {
	h := newHarness(t)
	var last int
	for i := 0; i < 5; i++ {
		last = h.submit(t, strings.Repeat("x", i+1)).StreakUpdated
		h.clock.Advance(time.Minute)
	}
	if last != 1 {
		t.Errorf("streak = %d, want 1", last)
	}
}

func TestStreakUsesConfiguredTimezone(t *testing.T) {
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	h := newHarness(t, func(d *journal.Deps) { d.StreakLocation = la })

	// 23:30 UTC on March 2 and 01:00 UTC on March 3 are both the afternoon
	// of March 2 in Los Angeles.
	h.clock.Advance(14*time.Hour + 30*time.Minute)
	h.submit(t, "afternoon")
	h.clock.Advance(90 * time.Minute)
	if got := h.submit(t, "even later").StreakUpdated; got != 1 {
		t.Errorf("streak = %d, want 1 in America/Los_Angeles", got)
	}
}

func TestSubmitEntryUnknownSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.pipeline.SubmitEntry(context.Background(), journal.SubmitRequest{SessionID: "never-created", Text: "hello"})
	if !errors.Is(err, db.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if h.llm.AnalyzeCalls() != 0 {
		t.Error("analyzer called for unknown session")
	}
	if n, _ := h.store.CountEntries(context.Background(), h.session); n != 0 {
		t.Errorf("entries written: %d", n)
	}
	if h.store.UpsertCalls != 0 {
		t.Error("prompt set written for unknown session")
	}
}

type emptyThemesAnalyzer struct{}

func (emptyThemesAnalyzer) AnalyzeEntry(context.Context, string, *string) (*models.Analysis, *models.Usage, error) {
	return &models.Analysis{
		MemorySummary: "quiet day",
		Themes:        []string{},
		Emotions:      []string{"calm"},
		Unresolved:    []string{},
	}, &models.Usage{Model: "test"}, nil
}

func TestSubmitEntryEmptyThemes(t *testing.T) {
	h := newHarness(t, func(d *journal.Deps) { d.Analyzer = emptyThemesAnalyzer{} })
	text := "Nothing much happened."
	res := h.submit(t, text)

	if len(res.Themes) != 0 {
		t.Errorf("Themes = %v", res.Themes)
	}
	want := tree.Assign(res.EntryID, text, nil, []string{"calm"})
	if res.Tree.Rarity != want.Rarity || res.Tree.Type != want.Type {
		t.Errorf("tree = %+v, want %+v", res.Tree, want)
	}
}

// listFailingStore makes every semantic search fail at the storage layer.
type listFailingStore struct{ storage.ObjectStore }

func (listFailingStore) List(context.Context, string) ([]string, error) {
	return nil, errors.New("connection reset")
}

func TestSubmitEntrySearchFailure(t *testing.T) {
	broken := semantic.NewIndex(listFailingStore{storage.NewMemoryStorage()}, semantic.HashEmbedder{})
	h := newHarness(t, func(d *journal.Deps) { d.Index = broken })

	h.submit(t, "first entry")
	res := h.submit(t, "second entry")

	hist := h.llm.LastHistory()
	if hist == nil || hist.RelevantMemories == nil || len(hist.RelevantMemories) != 0 {
		t.Fatalf("history = %+v, want empty relevant memories", hist)
	}
	if len(hist.RecentMemories) != 2 {
		t.Errorf("recent memories = %v", hist.RecentMemories)
	}
	if len(res.NewPrompts) == 0 {
		t.Error("no prompts after search failure")
	}
}

func TestSubmitEntrySemanticWriteFailure(t *testing.T) {
	h := newHarness(t, func(d *journal.Deps) { d.Index = testutil.FailingIndex{} })
	res := h.submit(t, "hello")

	if !slices.Contains(res.Warnings, journal.WarnSemanticIndex) {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if h.store.Indexed(res.EntryID) {
		t.Error("entry marked indexed although the write failed")
	}
	if len(res.NewPrompts) == 0 {
		t.Error("prompts missing")
	}
}

func TestSubmitEntryStoresAnalysisMetadata(t *testing.T) {
	objects := storage.NewMemoryStorage()
	h := newHarness(t, func(d *journal.Deps) {
		d.Index = semantic.NewIndex(objects, semantic.HashEmbedder{})
	})
	const text = "Quiet morning, then a hard talk with my sister."
	res := h.submit(t, text)

	ctx := context.Background()
	keys, err := objects.List(ctx, "semantic/"+h.session+"/")
	if err != nil || len(keys) != 1 {
		t.Fatalf("semantic keys = %v, err %v", keys, err)
	}
	raw, err := objects.Get(ctx, keys[0])
	if err != nil {
		t.Fatal(err)
	}
	var rec semantic.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatal(err)
	}

	analysis, _, err := h.llm.Mock.AnalyzeEntry(ctx, text, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Document != analysis.MemorySummary {
		t.Errorf("Document = %q, want the memory summary", rec.Document)
	}
	want := map[string]string{
		"session_id":          h.session,
		"entry_id":            strconv.FormatInt(res.EntryID, 10),
		"follow_up_question":  analysis.FollowUpQuestion,
		"patterns_reflection": analysis.PatternsReflection,
		"created_at":          start.Format(time.RFC3339),
	}
	for k, v := range want {
		if rec.Metadata[k] != v {
			t.Errorf("Metadata[%q] = %q, want %q", k, rec.Metadata[k], v)
		}
	}
	for _, k := range []string{"themes", "emotions", "unresolved"} {
		var got []string
		if err := json.Unmarshal([]byte(rec.Metadata[k]), &got); err != nil {
			t.Errorf("Metadata[%q] = %q: %v", k, rec.Metadata[k], err)
		}
	}
	if got := rec.Metadata["themes"]; !strings.Contains(got, analysis.Themes[0]) {
		t.Errorf("Metadata[themes] = %q, want it to hold %v", got, analysis.Themes)
	}
}

func TestSubmitEntryAnalyzerFailure(t *testing.T) {
	h := newHarness(t)
	h.llm.AnalyzeErr = errors.New("upstream 529")

	_, err := h.pipeline.SubmitEntry(context.Background(), journal.SubmitRequest{SessionID: h.session, Text: "hello"})
	if !errors.Is(err, journal.ErrUpstreamAnalysis) {
		t.Fatalf("err = %v, want ErrUpstreamAnalysis", err)
	}
	if n, _ := h.store.CountEntries(context.Background(), h.session); n != 0 {
		t.Errorf("%d entries committed after analyzer failure", n)
	}
	g, _ := h.store.GetGarden(context.Background(), h.session)
	if g.StreakDays != 0 {
		t.Errorf("streak days = %d", g.StreakDays)
	}
}

func TestSubmitEntryCommitFailure(t *testing.T) {
	h := newHarness(t)
	h.store.FailCommit = errors.New("deadlock detected")

	_, err := h.pipeline.SubmitEntry(context.Background(), journal.SubmitRequest{SessionID: h.session, Text: "hello"})
	if !errors.Is(err, journal.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if h.store.UpsertCalls != 0 {
		t.Error("prompts written after failed commit")
	}
}

func TestSubmitEntryGeneratorFailureKeepsPreviousPrompts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.submit(t, "first")

	before, err := h.store.GetPromptSet(ctx, h.session, models.PromptSourceGenerated)
	if err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(time.Hour)
	h.llm.GenerateErr = errors.New("timeout")
	res := h.submit(t, "second")
	if res.EntryID != 2 {
		t.Errorf("EntryID = %d", res.EntryID)
	}
	if res.NewPrompts == nil || len(res.NewPrompts) != 0 {
		t.Errorf("NewPrompts = %#v, want empty", res.NewPrompts)
	}
	if !slices.Contains(res.Warnings, journal.WarnPromptGeneration) {
		t.Errorf("Warnings = %v", res.Warnings)
	}

	after, _ := h.store.GetPromptSet(ctx, h.session, models.PromptSourceGenerated)
	if !after.CreatedAt.Equal(before.CreatedAt) || len(after.Prompts) != len(before.Prompts) {
		t.Errorf("generated prompt set changed: %+v -> %+v", before, after)
	}
}

func TestSubmitEntrySelectsValidPrompts(t *testing.T) {
	h := newHarness(t)
	h.llm.Prompts = []models.Prompt{
		{ID: "", Text: "missing id"},
		{ID: "a", Text: "first"},
		{ID: "b", Text: "   "},
		{ID: "c", Text: "second", Category: "growth"},
		{ID: "d", Text: "third"},
		{ID: "e", Text: "fourth"},
	}
	res := h.submit(t, "entry")

	var ids []string
	for _, p := range res.NewPrompts {
		ids = append(ids, p.ID)
	}
	if strings.Join(ids, ",") != "a,c,d" {
		t.Errorf("selected = %v, want a,c,d", ids)
	}
}

func TestSubmitEntryNoUsablePrompts(t *testing.T) {
	h := newHarness(t)
	h.llm.Prompts = []models.Prompt{{ID: "", Text: ""}}
	res := h.submit(t, "entry")

	if !slices.Contains(res.Warnings, journal.WarnPromptGeneration) {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if h.store.UpsertCalls != 0 {
		t.Error("empty prompt set cached")
	}
}

func TestPromptSetSingleRowReflectsLastCall(t *testing.T) {
	h := newHarness(t)
	h.llm.Prompts = []models.Prompt{{ID: "x1", Text: "one"}}
	h.submit(t, "first")
	h.llm.Prompts = []models.Prompt{{ID: "y1", Text: "two"}}
	h.submit(t, "second")

	if n := h.store.PromptSetCount(h.session); n != 1 {
		t.Fatalf("prompt sets = %d, want 1", n)
	}
	set, _ := h.store.GetPromptSet(context.Background(), h.session, models.PromptSourceGenerated)
	if set.Prompts[0].ID != "y1" {
		t.Errorf("prompts = %+v, want the second call's", set.Prompts)
	}
}

func TestSubmitEntryPromptCacheFailure(t *testing.T) {
	h := newHarness(t)
	h.store.FailUpsert = errors.New("connection refused")
	res := h.submit(t, "entry")

	if !slices.Contains(res.Warnings, journal.WarnPromptCache) {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if len(res.NewPrompts) != journal.NewPromptsLimit {
		t.Errorf("NewPrompts = %v", res.NewPrompts)
	}
}

func TestSubmitEntryHistoryFailure(t *testing.T) {
	h := newHarness(t)
	h.store.FailRecent = errors.New("statement timeout")
	res := h.submit(t, "entry")

	if !slices.Contains(res.Warnings, journal.WarnHistory) {
		t.Errorf("Warnings = %v", res.Warnings)
	}
	if hist := h.llm.LastHistory(); hist == nil || len(hist.RecentMemories) != 1 {
		t.Errorf("fallback history = %+v", hist)
	}
}

func TestSubmitEntryStoresRawTextAndPromptID(t *testing.T) {
	h := newHarness(t)
	prompt := "p3"
	res, err := h.pipeline.SubmitEntry(context.Background(), journal.SubmitRequest{
		SessionID: h.session, PromptID: &prompt, Text: "talking to my future self",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := h.store.EntryText(res.EntryID); got != "talking to my future self" {
		t.Errorf("stored text = %q", got)
	}
}
