package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"fireant/executor"
)

const maxRequestIDLen = 128

// RequestID assigns each request an id, reusing a well-formed X-Request-ID
// header. The id is echoed in the response and becomes the query id of every
// fetch made while serving the request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(executor.WithQueryID(r.Context(), id)))
	})
}

// RequestIDFromContext returns the request id, or "" outside RequestID.
func RequestIDFromContext(ctx context.Context) string {
	return executor.QueryID(ctx)
}

// validRequestID accepts [A-Za-z0-9._-] up to maxRequestIDLen characters so
// client ids cannot forge log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
