package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is the only identity the service knows about. There are no users.
type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is a single journal submission. Entries are never edited.
type Entry struct {
	ID         int64     `json:"entry_id"`
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"`
	PromptUsed *string   `json:"prompt_id,omitempty"`
	RawText    string    `json:"text"`
}

// Analysis is the structured output of the content analyzer for one entry.
type Analysis struct {
	MemorySummary      string   `json:"memory_summary"`
	PatternsReflection string   `json:"patterns_reflection"`
	FollowUpQuestion   string   `json:"follow_up_question"`
	Themes             []string `json:"themes"`
	Emotions           []string `json:"emotions"`
	Unresolved         []string `json:"unresolved"`
}

// Usage records which model produced an analysis and what it cost.
type Usage struct {
	Model        string          `json:"model"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
	CostUSD      decimal.Decimal `json:"cost_usd"`
}

// Rarity of an awarded tree, ordered from most to least common.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Tree is the reward attached to an entry.
type Tree struct {
	EntryID     int64     `json:"entry_id"`
	SessionID   string    `json:"session_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Type        string    `json:"type"`
	Rarity      Rarity    `json:"rarity"`
	DisplayName string    `json:"display_name"`
}

// ThreadStatus is the lifecycle state of a thread. Any transition is allowed.
type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadSnoozed  ThreadStatus = "snoozed"
	ThreadResolved ThreadStatus = "resolved"
)

// Valid reports whether s is one of the known statuses.
func (s ThreadStatus) Valid() bool {
	switch s {
	case ThreadActive, ThreadSnoozed, ThreadResolved:
		return true
	}
	return false
}

// Thread is an ongoing topic the user may want to return to.
type Thread struct {
	ID              int64        `json:"id"`
	SessionID       string       `json:"session_id"`
	Thread          string       `json:"thread"`
	Status          ThreadStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	LastSeenEntryID *int64       `json:"last_seen_entry_id,omitempty"`
}

// Prompt is a suggested starting point for the next entry.
type Prompt struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

// PromptSource identifies which flow produced a PromptSet.
type PromptSource string

const (
	PromptSourceOnboarding PromptSource = "onboarding"
	PromptSourceGenerated  PromptSource = "generated"
	// PromptSourceStarter marks the built-in prompts served before any set exists.
	// It is never stored.
	PromptSourceStarter PromptSource = "starter"
)

// PromptSet is the latest list of prompts for a (session, source) pair.
type PromptSet struct {
	SessionID string       `json:"session_id"`
	Source    PromptSource `json:"source"`
	CreatedAt time.Time    `json:"created_at"`
	Prompts   []Prompt     `json:"prompts"`
}

// SessionHistory is the context handed to the prompt generator.
// It carries derived summaries and thread metadata only, never raw entry text.
type SessionHistory struct {
	RecentMemories   []string `json:"recent_memories"`
	RelevantMemories []string `json:"relevant_memories"`
	ActiveThreads    []Thread `json:"active_threads"`
}

// EntryResult is what the pipeline returns after a submission commits.
type EntryResult struct {
	EntryID            int64    `json:"entry_id"`
	MemorySummary      string   `json:"memory_summary"`
	PatternsReflection string   `json:"patterns_reflection"`
	FollowUpQuestion   string   `json:"follow_up_question"`
	Themes             []string `json:"themes"`
	Emotions           []string `json:"emotions"`
	NewPrompts         []Prompt `json:"new_prompts"`
	Tree               Tree     `json:"tree"`
	StreakUpdated      int      `json:"streak_updated"`
	Warnings           []string `json:"warnings,omitempty"`
}

// BrainDumpResult is the analyzer output for an onboarding brain dump.
type BrainDumpResult struct {
	StarterPrompts []Prompt `json:"starter_prompts"`
	InitialThreads []string `json:"initial_threads"`
}

// OnboardingResult is returned to the client after onboarding.
type OnboardingResult struct {
	StarterPrompts []Prompt `json:"starter_prompts"`
	ActiveThreads  []Thread `json:"active_threads"`
	InitialTree    Tree     `json:"initial_tree"`
}

// TodayPrompts is the read-path view of the prompt cache.
type TodayPrompts struct {
	Source        PromptSource `json:"source"`
	Prompts       []Prompt     `json:"prompts"`
	ActiveThreads []Thread     `json:"active_threads"`
}

// Garden is a session's streak plus every tree it has grown.
type Garden struct {
	StreakDays int    `json:"streak_days"`
	Trees      []Tree `json:"trees"`
}

// Trends aggregates theme and emotion frequencies for a session.
type Trends struct {
	ThemeCounts   map[string]int `json:"theme_counts"`
	EmotionCounts map[string]int `json:"emotion_counts"`
	EntryCount    int            `json:"entry_count"`
	StreakDays    int            `json:"streak_days"`
}

// WeeklyInsight summarizes the last seven days of analyses.
type WeeklyInsight struct {
	PatternsReflection string         `json:"patterns_reflection"`
	Themes             []string       `json:"themes"`
	EmotionsSummary    map[string]int `json:"emotions_summary"`
	EntryCount         int            `json:"entry_count"`
}

// WeeklyInput is one analysis fed to the weekly insight generator.
type WeeklyInput struct {
	CreatedAt     time.Time `json:"created_at"`
	MemorySummary string    `json:"memory_summary"`
	Themes        []string  `json:"themes"`
	Emotions      []string  `json:"emotions"`
}
