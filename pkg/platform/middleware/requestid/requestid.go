// Package requestid assigns each request a correlation ID.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"attendgate/pkg/requestcontext"
)

// Middleware injects a request ID into the context and echoes it in the
// X-Request-ID response header. An inbound X-Request-ID is honored so callers
// can correlate across hops.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
