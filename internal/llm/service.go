// Package llm turns journal text into structured insights and prompts using a
// language model provider, with a deterministic mock for development.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/models"
)

var tracer = otel.Tracer("forest/llm")

// Upper bounds applied to analyzer output. The model is asked for 3-6 themes,
// 1-4 emotions and 0-3 unresolved items; shorter lists are accepted as is.
const (
	MaxThemes     = 6
	MaxEmotions   = 4
	MaxUnresolved = 3
)

// ErrInvalidResponse means the model answered but the answer was unusable.
var ErrInvalidResponse = errors.New("invalid model response")

// Provider is everything the journal needs from a language model.
type Provider interface {
	AnalyzeEntry(ctx context.Context, text string, promptID *string) (*models.Analysis, *models.Usage, error)
	GeneratePrompts(ctx context.Context, blob string, history *models.SessionHistory) ([]models.Prompt, error)
	AnalyzeBrainDump(ctx context.Context, brainDump string) (*models.BrainDumpResult, error)
	WeeklyInsights(ctx context.Context, entries []models.WeeklyInput) (*models.WeeklyInsight, error)
}

type analysisResponse struct {
	MemorySummary      string   `json:"memory_summary" jsonschema:"description=One or two factual sentences capturing what the entry was about"`
	PatternsReflection string   `json:"patterns_reflection" jsonschema:"description=A gentle observation about patterns in the entry rather than advice"`
	FollowUpQuestion   string   `json:"follow_up_question" jsonschema:"description=One open-ended question inviting further reflection"`
	Themes             []string `json:"themes" jsonschema:"description=3 to 6 short lowercase theme keywords"`
	Emotions           []string `json:"emotions" jsonschema:"description=1 to 4 lowercase emotion words"`
	Unresolved         []string `json:"unresolved" jsonschema:"description=0 to 3 open loops the writer may want to revisit"`
}

type promptItem struct {
	ID       string `json:"id" jsonschema:"description=Short stable identifier such as g1"`
	Text     string `json:"text" jsonschema:"description=The prompt addressed to the writer"`
	Category string `json:"category" jsonschema:"description=One word category such as reflection or gratitude"`
}

type promptsResponse struct {
	Prompts []promptItem `json:"prompts"`
}

type brainDumpResponse struct {
	StarterPrompts []promptItem `json:"starter_prompts"`
	Threads        []string     `json:"threads" jsonschema:"description=0 to 3 ongoing topics worth returning to"`
}

// Strict schemas cannot express free-form maps, so counts come back as pairs.
type emotionCount struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

type weeklyResponse struct {
	PatternsReflection string         `json:"patterns_reflection"`
	Themes             []string       `json:"themes"`
	Emotions           []emotionCount `json:"emotions"`
}

var (
	analysisSchema  = GenerateSchema[analysisResponse]()
	promptsSchema   = GenerateSchema[promptsResponse]()
	brainDumpSchema = GenerateSchema[brainDumpResponse]()
	weeklySchema    = GenerateSchema[weeklyResponse]()
)

// Service implements Provider on top of a Completer.
type Service struct {
	completer Completer
}

func NewService(c Completer) *Service {
	return &Service{completer: c}
}

func (s *Service) complete(ctx context.Context, name string, req CompletionRequest, out any) (*Completion, error) {
	ctx, span := tracer.Start(ctx, "llm."+name,
		trace.WithAttributes(attribute.Int("llm.input_chars", len(req.Input))))
	defer span.End()

	c, err := s.completer.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("llm.model", c.Model),
		attribute.Int("llm.input_tokens", c.InputTokens),
		attribute.Int("llm.output_tokens", c.OutputTokens),
	)

	if err := decodeModelJSON(c.Text, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable response")
		logger.Ctx(ctx).Warn("model returned unparseable output", "call", name, "model", c.Model, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return c, nil
}

func (s *Service) AnalyzeEntry(ctx context.Context, text string, promptID *string) (*models.Analysis, *models.Usage, error) {
	var b strings.Builder
	if promptID != nil && *promptID != "" {
		fmt.Fprintf(&b, "The writer was responding to prompt %q.\n\n", *promptID)
	}
	b.WriteString("Journal entry:\n")
	b.WriteString(text)

	var resp analysisResponse
	c, err := s.complete(ctx, "analyze_entry", CompletionRequest{
		System:     analyzeEntryInstructions,
		Input:      b.String(),
		MaxTokens:  1000,
		SchemaName: "EntryAnalysis",
		Schema:     analysisSchema,
	}, &resp)
	if err != nil {
		return nil, nil, err
	}

	a := &models.Analysis{
		MemorySummary:      strings.TrimSpace(resp.MemorySummary),
		PatternsReflection: strings.TrimSpace(resp.PatternsReflection),
		FollowUpQuestion:   strings.TrimSpace(resp.FollowUpQuestion),
		Themes:             clamp(resp.Themes, MaxThemes),
		Emotions:           clamp(resp.Emotions, MaxEmotions),
		Unresolved:         clamp(resp.Unresolved, MaxUnresolved),
	}
	if a.MemorySummary == "" {
		return nil, nil, fmt.Errorf("%w: empty memory_summary", ErrInvalidResponse)
	}

	return a, usageOf(c), nil
}

func (s *Service) GeneratePrompts(ctx context.Context, blob string, history *models.SessionHistory) ([]models.Prompt, error) {
	var resp promptsResponse
	if _, err := s.complete(ctx, "generate_prompts", CompletionRequest{
		System:     generatePromptsInstructions,
		Input:      renderPromptInput(blob, history),
		MaxTokens:  1200,
		SchemaName: "JournalPrompts",
		Schema:     promptsSchema,
	}, &resp); err != nil {
		return nil, err
	}
	return toPrompts(resp.Prompts), nil
}

func (s *Service) AnalyzeBrainDump(ctx context.Context, brainDump string) (*models.BrainDumpResult, error) {
	var resp brainDumpResponse
	if _, err := s.complete(ctx, "analyze_brain_dump", CompletionRequest{
		System:     brainDumpInstructions,
		Input:      "Brain dump:\n" + brainDump,
		MaxTokens:  1200,
		SchemaName: "OnboardingAnalysis",
		Schema:     brainDumpSchema,
	}, &resp); err != nil {
		return nil, err
	}

	prompts := toPrompts(resp.StarterPrompts)
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: no starter prompts", ErrInvalidResponse)
	}
	return &models.BrainDumpResult{
		StarterPrompts: prompts,
		InitialThreads: clamp(resp.Threads, MaxUnresolved),
	}, nil
}

func (s *Service) WeeklyInsights(ctx context.Context, entries []models.WeeklyInput) (*models.WeeklyInsight, error) {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %s (themes: %s; emotions: %s)\n",
			e.CreatedAt.Format("Mon Jan 2"), e.MemorySummary,
			strings.Join(e.Themes, ", "), strings.Join(e.Emotions, ", "))
	}

	var resp weeklyResponse
	if _, err := s.complete(ctx, "weekly_insights", CompletionRequest{
		System:     weeklyInstructions,
		Input:      "Entries from the past week:\n" + b.String(),
		MaxTokens:  1000,
		SchemaName: "WeeklyInsight",
		Schema:     weeklySchema,
	}, &resp); err != nil {
		return nil, err
	}

	summary := make(map[string]int, len(resp.Emotions))
	for _, ec := range resp.Emotions {
		name := strings.TrimSpace(ec.Emotion)
		if name == "" || ec.Count <= 0 {
			continue
		}
		summary[name] += ec.Count
	}
	return &models.WeeklyInsight{
		PatternsReflection: strings.TrimSpace(resp.PatternsReflection),
		Themes:             clamp(resp.Themes, MaxThemes),
		EmotionsSummary:    summary,
		EntryCount:         len(entries),
	}, nil
}

// renderPromptInput lays out the entry blob and the session history.
// A nil history means the writer has no past entries.
func renderPromptInput(blob string, history *models.SessionHistory) string {
	var b strings.Builder
	b.WriteString("Latest entry insights:\n")
	b.WriteString(blob)
	b.WriteString("\n")

	if history == nil {
		b.WriteString("\nThis is the writer's first entry.\n")
		return b.String()
	}
	writeList(&b, "Recent memories", history.RecentMemories)
	writeList(&b, "Related older memories", history.RelevantMemories)
	threads := make([]string, len(history.ActiveThreads))
	for i, t := range history.ActiveThreads {
		threads[i] = t.Thread
	}
	writeList(&b, "Open threads", threads)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func toPrompts(items []promptItem) []models.Prompt {
	out := make([]models.Prompt, 0, len(items))
	for _, p := range items {
		out = append(out, models.Prompt{
			ID:       strings.TrimSpace(p.ID),
			Text:     strings.TrimSpace(p.Text),
			Category: strings.TrimSpace(p.Category),
		})
	}
	return out
}

// clamp trims blanks and caps the list. The result is never nil.
func clamp(items []string, limit int) []string {
	out := make([]string, 0, min(len(items), limit))
	for _, s := range items {
		if len(out) == limit {
			break
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func usageOf(c *Completion) *models.Usage {
	return &models.Usage{
		Model:        c.Model,
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		CostUSD:      EstimateCost(c.Model, c.InputTokens, c.OutputTokens),
	}
}
