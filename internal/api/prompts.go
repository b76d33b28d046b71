package api

import (
	"net/http"

	"github.com/journalforest/forest-backend/internal/validation"
)

type onboardingRequest struct {
	SessionID string `json:"session_id"`
	BrainDump string `json:"brain_dump"`
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.SessionID(req.SessionID); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.BrainDump(req.BrainDump); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Onboarding.Submit(r.Context(), req.SessionID, req.BrainDump)
	if err != nil {
		respondServiceError(w, r, err, "process onboarding")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleTodayPrompts only reads; it never triggers generation.
func (s *Server) handleTodayPrompts(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	today, err := s.svc.Prompts.Today(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "load prompts")
		return
	}
	respondJSON(w, http.StatusOK, today)
}
