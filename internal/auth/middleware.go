package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"attendgate/internal/security"
	"attendgate/internal/security/audit"
	dErrors "attendgate/pkg/domain-errors"
	"attendgate/pkg/platform/httputil"
	"attendgate/pkg/requestcontext"
)

// RequireAuth returns route-scoped middleware enforcing the bearer credential
// chain. It is mounted per route group, not globally, so exempt paths stay
// unauthenticated. allowNoAuth is the development override; it must never be
// set in production.
func RequireAuth(chain *Chain, recorder *audit.Recorder, logger *slog.Logger, allowNoAuth bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := requestcontext.ClientIP(ctx)

			credential, ok := bearerCredential(r.Header.Get("Authorization"))
			if !ok {
				if allowNoAuth {
					logger.WarnContext(ctx, "request without credential allowed by development override",
						"client_key", clientKey, "path", r.URL.Path)
					next.ServeHTTP(w, r)
					return
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required: capability token or API key"))
				return
			}

			scheme, matched := chain.Verify(credential)
			if !matched {
				recorder.Record(ctx, security.EventInvalidAuth, security.SeverityMedium, clientKey,
					"bearer credential matched no verifier")
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid authentication credentials"))
				return
			}

			logger.DebugContext(ctx, "credential accepted", "scheme", scheme, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}

func bearerCredential(header string) (string, bool) {
	const prefix = "Bearer "
	credential, ok := strings.CutPrefix(header, prefix)
	if !ok || credential == "" {
		return "", false
	}
	return credential, true
}
