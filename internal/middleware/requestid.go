// Package middleware provides HTTP middleware for the operational endpoints.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/taskdesk/taskdesk/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID takes the correlation id from the X-Request-ID header, or mints
// one when the caller sent none. The id is stored in the request context so
// log records and published events carry it, and echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
