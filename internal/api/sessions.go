package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/validation"
)

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Sessions.Create(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "create session")
		return
	}
	logger.Ctx(r.Context()).Info("session created", "session_id", sess.ID)
	respondJSON(w, http.StatusOK, createSessionResponse{SessionID: sess.ID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := validation.SessionID(id); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.svc.Sessions.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "get session")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

type numEntriesResponse struct {
	NumEntries int `json:"num_entries"`
}

func (s *Server) handleNumEntries(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	n, err := s.svc.Sessions.CountEntries(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "count entries")
		return
	}
	respondJSON(w, http.StatusOK, numEntriesResponse{NumEntries: n})
}

func (s *Server) handleGarden(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	garden, err := s.svc.Sessions.Garden(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "load garden")
		return
	}
	respondJSON(w, http.StatusOK, garden)
}
