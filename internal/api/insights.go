package api

import (
	"net/http"
)

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	trends, err := s.svc.Insights.Trends(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "load trends")
		return
	}
	respondJSON(w, http.StatusOK, trends)
}

func (s *Server) handleWeeklyInsights(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	insight, err := s.svc.Insights.Weekly(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "generate weekly insights")
		return
	}
	respondJSON(w, http.StatusOK, insight)
}

type deleteMemoriesResponse struct {
	Message        string `json:"message"`
	SessionID      string `json:"session_id"`
	EntriesDeleted int64  `json:"entries_deleted"`
}

func (s *Server) handleDeleteMemories(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	n, err := s.svc.Memories.Delete(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "delete memories")
		return
	}
	respondJSON(w, http.StatusOK, deleteMemoriesResponse{
		Message:        "All memories deleted successfully",
		SessionID:      id,
		EntriesDeleted: n,
	})
}
