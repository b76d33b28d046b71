package journal

import "github.com/journalforest/forest-backend/internal/llm"

// Provider is everything the journal flows ask of the language model.
// *llm.Service and llm.Mock implement it.
type Provider interface {
	Analyzer
	Generator
	BrainDumpAnalyzer
	WeeklyInsighter
}

var (
	_ Provider = llm.Mock{}
	_ Provider = (*llm.Service)(nil)
)

// Services bundles the session-scoped flows behind the HTTP API.
type Services struct {
	Pipeline   *Pipeline
	Sessions   *Sessions
	Onboarding *Onboarding
	Prompts    *PromptCache
	Threads    *Threads
	Insights   *Insights
	Memories   *Memories
}

// NewServices wires every flow to the same store, index and clock. Analyzer
// and Generator in d default to provider when nil.
func NewServices(d Deps, provider Provider) *Services {
	if d.Analyzer == nil {
		d.Analyzer = provider
	}
	if d.Generator == nil {
		d.Generator = provider
	}
	return &Services{
		Pipeline:   NewPipeline(d),
		Sessions:   NewSessions(d.Store, d.Now),
		Onboarding: NewOnboarding(d.Store, provider, d.Trees, d.Now),
		Prompts:    NewPromptCache(d.Store),
		Threads:    NewThreads(d.Store, d.Now),
		Insights:   NewInsights(d.Store, provider, d.Now),
		Memories:   NewMemories(d.Store, d.Index),
	}
}
