package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/journalforest/forest-backend/internal/models"
	"github.com/journalforest/forest-backend/internal/validation"
)

type threadsResponse struct {
	Threads []models.Thread `json:"threads"`
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionParam(w, r)
	if !ok {
		return
	}
	var status *models.ThreadStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := validation.ThreadStatus(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = &st
	}

	threads, err := s.svc.Threads.List(r.Context(), id, status)
	if err != nil {
		respondServiceError(w, r, err, "list threads")
		return
	}
	respondJSON(w, http.StatusOK, threadsResponse{Threads: threads})
}

type updateThreadRequest struct {
	Status string `json:"status"`
}

type updateThreadResponse struct {
	Message  string        `json:"message"`
	ThreadID int64         `json:"thread_id"`
	Thread   models.Thread `json:"thread"`
}

func (s *Server) handleUpdateThread(w http.ResponseWriter, r *http.Request) {
	threadID, err := strconv.ParseInt(chi.URLParam(r, "threadID"), 10, 64)
	if err != nil || threadID <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid thread ID")
		return
	}

	var req updateThreadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := validation.ThreadStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	th, err := s.svc.Threads.UpdateStatus(r.Context(), threadID, status)
	if err != nil {
		respondServiceError(w, r, err, "update thread")
		return
	}
	respondJSON(w, http.StatusOK, updateThreadResponse{
		Message:  "Thread updated successfully",
		ThreadID: th.ID,
		Thread:   *th,
	})
}
