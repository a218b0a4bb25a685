package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize applies when MaxRequestSize is given a non-positive
// value.
const DefaultMaxRequestSize int64 = 1 << 20 // 1MB

// MaxRequestSize caps request body size. Oversized declared lengths are
// rejected up front; the body is wrapped in a MaxBytesReader either way so
// handlers see *http.MaxBytesError on chunked overruns.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
