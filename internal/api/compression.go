package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// decompressMiddleware replaces a zstd, br or gzip encoded request body with
// its decoded stream. Requests without Content-Encoding pass through.
func decompressMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))

			var body io.ReadCloser
			switch encoding {
			case "":
				next.ServeHTTP(w, r)
				return
			case "identity":
				r.Header.Del("Content-Encoding")
				next.ServeHTTP(w, r)
				return
			case "zstd":
				dec, err := zstd.NewReader(r.Body, zstd.WithDecoderMaxMemory(64<<20))
				if err != nil {
					respondError(w, http.StatusBadRequest, "Failed to create zstd decoder")
					return
				}
				defer dec.Close()
				body = io.NopCloser(dec)
			case "br":
				body = io.NopCloser(brotli.NewReader(r.Body))
			case "gzip":
				gz, err := gzip.NewReader(r.Body)
				if err != nil {
					respondError(w, http.StatusBadRequest, "Invalid gzip body")
					return
				}
				defer gz.Close()
				body = gz
			default:
				respondError(w, http.StatusUnsupportedMediaType, "Unsupported Content-Encoding: "+encoding)
				return
			}

			r.Body = body
			r.Header.Del("Content-Encoding")
			r.Header.Del("Content-Length")
			r.ContentLength = -1
			next.ServeHTTP(w, r)
		})
	}
}
