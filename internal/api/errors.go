package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/journal"
	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/validation"
)

// respondServiceError maps journal and store errors to status codes. action
// completes "Failed to ..." in the 500 message.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, db.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, db.ErrThreadNotFound):
		respondError(w, http.StatusNotFound, "Thread not found")
	case errors.Is(err, validation.ErrInvalid), errors.Is(err, journal.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, journal.ErrUpstreamAnalysis):
		logger.Ctx(r.Context()).Error("upstream model failed", "action", action, "error", err)
		respondError(w, http.StatusBadGateway, "The reflection service is unavailable, please try again")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Ctx(r.Context()).Error("request timed out", "action", action, "error", err)
		respondError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		logger.Ctx(r.Context()).Error("request failed", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// decodeJSON reads the body into v and writes a 400 or 413 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// sessionParam reads and validates ?session_id=.
func sessionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if err := validation.SessionID(id); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}
