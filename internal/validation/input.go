// Package validation checks request input before it reaches the journal flows.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/journalforest/forest-backend/internal/models"
)

// Input limits.
const (
	MaxEntryRunes     = 20000
	MaxBrainDumpRunes = 20000
	MaxSessionIDLen   = 64
	MaxPromptIDLen    = 64
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// SessionID requires a present, bounded id. Whether it exists is the store's call.
func SessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("session_id is required")
	}
	if len(id) > MaxSessionIDLen || !utf8.ValidString(id) {
		return invalid("session_id is malformed")
	}
	return nil
}

// PromptID accepts nil.
func PromptID(id *string) error {
	if id == nil {
		return nil
	}
	if *id == "" || len(*id) > MaxPromptIDLen || !utf8.ValidString(*id) {
		return invalid("prompt_id must be 1 to %d characters", MaxPromptIDLen)
	}
	return nil
}

// EntryText requires non-blank UTF-8 text of at most MaxEntryRunes runes.
func EntryText(text string) error {
	return boundedText("text", text, MaxEntryRunes)
}

func BrainDump(text string) error {
	return boundedText("brain_dump", text, MaxBrainDumpRunes)
}

func boundedText(field, text string, limit int) error {
	if !utf8.ValidString(text) {
		return invalid("%s must be valid UTF-8", field)
	}
	if strings.TrimSpace(text) == "" {
		return invalid("%s is required", field)
	}
	if n := utf8.RuneCountInString(text); n > limit {
		return invalid("%s is too long (%d characters, max %d)", field, n, limit)
	}
	return nil
}

// ThreadStatus parses one of active, snoozed or resolved.
func ThreadStatus(s string) (models.ThreadStatus, error) {
	st := models.ThreadStatus(s)
	if !st.Valid() {
		return "", invalid("status must be one of active, snoozed, resolved")
	}
	return st, nil
}
