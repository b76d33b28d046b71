package llm

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/journalforest/forest-backend/internal/models"
)

// MockModel is recorded as the model of mock analyses.
const MockModel = "mock"

// Mock is a deterministic Provider for local development and tests. Output
// depends only on the input text.
type Mock struct{}

var _ Provider = Mock{}

var mockVariants = []struct {
	themes   []string
	emotions []string
}{
	{[]string{"relationships", "connection", "communication"}, []string{"grateful", "warm"}},
	{[]string{"work", "productivity", "purpose"}, []string{"focused", "motivated"}},
	{[]string{"reflection", "growth", "challenge"}, []string{"contemplative", "hopeful"}},
}

func (Mock) AnalyzeEntry(_ context.Context, text string, _ *string) (*models.Analysis, *models.Usage, error) {
	sum := md5.Sum([]byte(text))
	v := mockVariants[binary.BigEndian.Uint32(sum[:4])%3]

	a := &models.Analysis{
		MemorySummary: fmt.Sprintf("A thoughtful reflection on %s.", strings.Join(v.themes[:2], ", ")),
		PatternsReflection: "I'm noticing you're exploring themes of personal growth and connection. " +
			"There's a pattern of thoughtful reflection emerging in your entries.",
		FollowUpQuestion: "What would it look like to deepen this exploration?",
		Themes:           append([]string(nil), v.themes...),
		Emotions:         append([]string(nil), v.emotions...),
		Unresolved:       []string{},
	}
	return a, &models.Usage{Model: MockModel, CostUSD: decimal.Zero}, nil
}

func (Mock) GeneratePrompts(context.Context, string, *models.SessionHistory) ([]models.Prompt, error) {
	return []models.Prompt{
		{ID: "p1", Text: "What's something you learned about yourself recently?", Category: "reflection"},
		{ID: "p2", Text: "Describe a moment that made you pause today.", Category: "mindfulness"},
		{ID: "p3", Text: "What conversation would you want to have with your future self?", Category: "future"},
		{ID: "p4", Text: "Write about a boundary you're learning to set.", Category: "growth"},
		{ID: "p5", Text: "What does rest look like for you right now?", Category: "wellness"},
		{ID: "p6", Text: "Describe a small moment of joy from this week.", Category: "gratitude"},
	}, nil
}

// StarterPrompts are shown to sessions that have neither onboarded nor
// written an entry, and are what the mock returns for a brain dump.
func StarterPrompts() []models.Prompt {
	return []models.Prompt{
		{ID: "sp1", Text: "What brings you to journaling right now?", Category: "intention"},
		{ID: "sp2", Text: "Write about what you're hoping to discover.", Category: "exploration"},
		{ID: "sp3", Text: "What's one thing you'd like to understand better about yourself?", Category: "curiosity"},
		{ID: "sp4", Text: "Describe a recent moment that stayed with you.", Category: "reflection"},
		{ID: "sp5", Text: "What feels important to you right now?", Category: "values"},
		{ID: "sp6", Text: "Write freely about whatever comes to mind.", Category: "freeform"},
	}
}

func (Mock) AnalyzeBrainDump(context.Context, string) (*models.BrainDumpResult, error) {
	return &models.BrainDumpResult{
		StarterPrompts: StarterPrompts(),
		InitialThreads: []string{},
	}, nil
}

func (Mock) WeeklyInsights(_ context.Context, entries []models.WeeklyInput) (*models.WeeklyInsight, error) {
	return &models.WeeklyInsight{
		PatternsReflection: "This week, you've been exploring themes of growth and reflection. " +
			"I notice a pattern of thoughtful engagement with your inner world. " +
			"Your entries show increasing depth and self-awareness.",
		Themes: []string{"growth", "reflection", "mindfulness"},
		EmotionsSummary: map[string]int{
			"contemplative": 3,
			"hopeful":       2,
			"grateful":      1,
		},
		EntryCount: len(entries),
	}, nil
}
