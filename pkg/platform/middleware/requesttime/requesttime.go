// Package requesttime stamps each request with a single "now" so every
// time-sensitive check within one request agrees on the clock.
package requesttime

import (
	"net/http"
	"time"

	"attendgate/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and stores
// it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
