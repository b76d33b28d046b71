package api

import (
	"net/http"

	"github.com/journalforest/forest-backend/internal/journal"
	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/validation"
)

type createEntryRequest struct {
	SessionID string  `json:"session_id"`
	PromptID  *string `json:"prompt_id"`
	Text      string  `json:"text"`
}

func (r createEntryRequest) validate() error {
	if err := validation.SessionID(r.SessionID); err != nil {
		return err
	}
	if err := validation.PromptID(r.PromptID); err != nil {
		return err
	}
	return validation.EntryText(r.Text)
}

// handleCreateEntry runs the entry pipeline. Submissions are limited per session.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := logger.WithSession(r.Context(), req.SessionID)
	if !s.config.EntryLimiter.Allow(ctx, "session:"+req.SessionID) {
		logger.Ctx(ctx).Warn("entry rate limit exceeded")
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "Too many entries, please wait a moment")
		return
	}

	res, err := s.svc.Pipeline.SubmitEntry(ctx, journal.SubmitRequest{
		SessionID: req.SessionID,
		PromptID:  req.PromptID,
		Text:      req.Text,
	})
	if err != nil {
		respondServiceError(w, r.WithContext(ctx), err, "save entry")
		return
	}
	respondJSON(w, http.StatusOK, res)
}
