package api

import (
	"mime"
	"net/http"

	"github.com/journalforest/forest-backend/internal/logger"
)

// validateContentType requires application/json on POST, PUT and PATCH
// requests that carry a body. Body-less POSTs such as session creation pass.
func validateContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength == 0 && len(r.TransferEncoding) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		log := logger.Ctx(r.Context())
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			log.Info("request missing Content-Type header", "method", r.Method, "path", r.URL.Path)
			respondError(w, http.StatusUnsupportedMediaType, "Content-Type header required")
			return
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			log.Info("request with invalid Content-Type", "method", r.Method, "path", r.URL.Path, "content_type", contentType)
			respondError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		next.ServeHTTP(w, r)
	})
}
