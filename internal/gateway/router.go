// Package gateway assembles the HTTP surface: middleware chain, public
// routes, and the authenticated aggregation API.
package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendgate/internal/gateway/handler"
	"attendgate/internal/security/gate"
	"attendgate/pkg/platform/middleware/metadata"
	"attendgate/pkg/platform/middleware/requestid"
	"attendgate/pkg/platform/middleware/requesttime"
)

// NewRouter builds the full middleware chain and mounts every route. Client
// metadata resolution runs first so the security gate keys on the real
// address; the gate wraps everything, auth wraps only the aggregation API.
func NewRouter(h *handler.Handler, g *gate.Gate, requireAuth func(http.Handler) http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(requestid.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(g.Middleware)

	h.RegisterPublic(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(requireAuth)
		h.Register(api)
	})

	return r
}
