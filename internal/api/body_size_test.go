package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWithMaxBody(t *testing.T) {
	readAll := func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	decode := func(w http.ResponseWriter, r *http.Request) {
		var v map[string]string
		if decodeJSON(w, r, &v) {
			w.WriteHeader(http.StatusOK)
		}
	}

	tests := []struct {
		name    string
		limit   int64
		body    string
		handler http.HandlerFunc
		want    int
	}{
		{"under the limit", 1024, strings.Repeat("x", 512), readAll, http.StatusOK},
		{"exactly at the limit", 10, "0123456789", readAll, http.StatusOK},
		{"one byte over", 10, "0123456789a", readAll, http.StatusRequestEntityTooLarge},
		{"entry text over the limit", 64, `{"text":"` + strings.Repeat("x", 128) + `"}`, decode, http.StatusRequestEntityTooLarge},
		{"small entry decodes", 64, `{"text":"hi"}`, decode, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			withMaxBody(tt.limit, tt.handler).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
