package api

import (
	"fmt"
	"net/http"

	"github.com/journalforest/forest-backend/internal/logger"
)

// Maximum number of errors accepted per request
const maxClientErrors = 50

const maxClientStackPreview = 500

type clientErrorItem struct {
	Message   string `json:"message"`
	Component string `json:"component,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Status    int    `json:"status,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

type clientErrorContext struct {
	URL       string `json:"url,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// clientErrorReport is the request body for POST /api/client-errors.
type clientErrorReport struct {
	Category  string              `json:"category"`
	SessionID string              `json:"session_id,omitempty"`
	Errors    []clientErrorItem   `json:"errors"`
	Context   *clientErrorContext `json:"context,omitempty"`
}

func (r clientErrorReport) validate() error {
	if r.Category == "" {
		return fmt.Errorf("category is required")
	}
	if len(r.Errors) == 0 {
		return fmt.Errorf("errors must not be empty")
	}
	if len(r.Errors) > maxClientErrors {
		return fmt.Errorf("too many errors (max %d)", maxClientErrors)
	}
	for i, e := range r.Errors {
		if e.Message == "" {
			return fmt.Errorf("errors[%d].message is required", i)
		}
	}
	return nil
}

// handleReportClientErrors logs errors the web client hit (failed renders,
// failed API calls) so they show up next to the server's own logs.
// Nothing is stored.
func (s *Server) handleReportClientErrors(w http.ResponseWriter, r *http.Request) {
	var req clientErrorReport
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if req.SessionID != "" {
		ctx = logger.WithSession(ctx, truncate(sanitizeLogValue(req.SessionID), 64))
	}
	log := logger.Ctx(ctx)

	var pageURL, userAgent string
	if req.Context != nil {
		pageURL = truncate(sanitizeLogValue(req.Context.URL), 200)
		userAgent = truncate(sanitizeLogValue(req.Context.UserAgent), 100)
	}

	// One line per error for easy grep/alerting
	for _, e := range req.Errors {
		log.Warn("client error",
			"category", req.Category,
			"error_message", truncate(sanitizeLogValue(e.Message), maxErrorMessageLength),
			"component", e.Component,
			"endpoint", e.Endpoint,
			"status", e.Status,
			"stack_preview", truncate(sanitizeLogValue(e.Stack), maxClientStackPreview),
			"url", pageURL,
			"user_agent", userAgent,
		)
	}
	log.Warn("client errors reported", "count", len(req.Errors), "category", req.Category)

	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
