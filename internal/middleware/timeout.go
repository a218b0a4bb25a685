package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout applies when Timeout is given a non-positive value.
const DefaultRequestTimeout = 30 * time.Second

// Timeout enforces a deadline on each request. Handlers observe it through
// the request context; a response still pending when it expires gets a 503
// from http.TimeoutHandler. Not suitable for streaming routes: the timeout
// handler buffers the response and hides http.Flusher.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		handler := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			handler.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
