package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/templui/filesmanager/internal/ctxkeys"
)

const requestIDHeader = "X-Request-ID"

// WithRequestID adds a request id to the context and the response headers.
// An incoming X-Request-ID is kept so ids survive a proxy hop.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := ctxkeys.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
