// Package gate implements the ordered security pipeline wrapped around every
// inbound request.
//
// Order is fixed: client-key resolution happens upstream (metadata
// middleware), then IP allow-list, rate limit, payload size, and body content
// scan, each failing closed. Rate limiting runs before the content scan on
// purpose: an abusive client must be rejected before its body is even read.
package gate

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"attendgate/internal/platform/metrics"
	ratelimit "attendgate/internal/ratelimit/service"
	"attendgate/internal/security"
	"attendgate/internal/security/audit"
	"attendgate/internal/security/ipfilter"
	"attendgate/internal/security/scan"
	dErrors "attendgate/pkg/domain-errors"
	"attendgate/pkg/platform/httputil"
	"attendgate/pkg/requestcontext"
)

// securityHeaders are injected into every response, exempt paths included.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "SAMEORIGIN",
	"X-XSS-Protection":       "1; mode=block",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
	"Cache-Control":          "no-cache, no-store, must-revalidate",
	"Pragma":                 "no-cache",
	"Expires":                "0",
}

// maxScanBytes caps how much of a body the content scan reads.
const maxScanBytes = 1 << 20

// Gate is the security pipeline middleware.
type Gate struct {
	filter      *ipfilter.Filter
	limiter     *ratelimit.Service
	maxBodySize int64
	exempt      map[string]struct{}

	recorder *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Gate.
type Option func(*Gate)

// WithMetrics wires the blocked-request counter.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithExemptPaths replaces the default exempt path set.
func WithExemptPaths(paths ...string) Option {
	return func(g *Gate) {
		g.exempt = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			g.exempt[p] = struct{}{}
		}
	}
}

// New creates a Gate. Health, root, docs, and metrics paths are exempt from
// all checks except header injection unless overridden.
func New(filter *ipfilter.Filter, limiter *ratelimit.Service, maxBodySize int64, recorder *audit.Recorder, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		filter:      filter,
		limiter:     limiter,
		maxBodySize: maxBodySize,
		exempt: map[string]struct{}{
			"/":        {},
			"/health":  {},
			"/docs":    {},
			"/metrics": {},
		},
		recorder: recorder,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware wraps next with the full pipeline.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientKey := requestcontext.ClientIP(ctx)

		setSecurityHeaders(w)

		if _, ok := g.exempt[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK, start: start}

		// 1. IP allow-list; an empty list is default-open.
		if !g.filter.Allowed(clientKey) {
			g.blocked(security.EventIPBlocked)
			g.recorder.Record(ctx, security.EventIPBlocked, security.SeverityHigh, clientKey, "address not in allow-list")
			g.reject(sw, r, start, dErrors.New(dErrors.CodeForbidden, "access denied from this address"))
			return
		}

		// 2. Rate limit.
		result := g.limiter.Check(ctx, clientKey)
		sw.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		sw.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			sw.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			g.blocked(security.EventRateLimitExceeded)
			g.recorder.Record(ctx, security.EventRateLimitExceeded, security.SeverityMedium, clientKey,
				fmt.Sprintf("rejected, retry after %ds", result.RetryAfter))
			g.reject(sw, r, start, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded, try again later"))
			return
		}

		// 3. Payload size ceiling.
		if g.maxBodySize > 0 && r.ContentLength > g.maxBodySize {
			g.blocked(security.EventRequestTooLarge)
			g.recorder.Record(ctx, security.EventRequestTooLarge, security.SeverityMedium, clientKey,
				fmt.Sprintf("content length %d exceeds ceiling %d", r.ContentLength, g.maxBodySize))
			g.reject(sw, r, start, dErrors.New(dErrors.CodePayloadTooLarge, "request payload too large"))
			return
		}

		// 4. Content scan, mutating methods only. A body-read failure passes
		// through; the scan is an extra net, not a correctness gate.
		if isMutating(r.Method) && r.Body != nil {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxScanBytes))
			if err == nil {
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
				if !scan.IsSafe(body) {
					g.blocked(security.EventMaliciousRequest)
					g.recorder.Record(ctx, security.EventMaliciousRequest, security.SeverityHigh, clientKey,
						"request body matched blocked pattern")
					g.reject(sw, r, start, dErrors.New(dErrors.CodeMaliciousContent, "request contains invalid patterns"))
					return
				}
			}
		}

		next.ServeHTTP(sw, r)

		if sw.status >= 400 {
			g.recorder.Record(ctx, security.EventRequestRejected, security.SeverityMedium, clientKey,
				fmt.Sprintf("%s %s -> %d", r.Method, r.URL.Path, sw.status))
		} else {
			g.logger.InfoContext(ctx, "request served",
				"client_key", clientKey,
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	})
}

// reject writes the error response. The specific audit event was already
// recorded by the failing step, so only the access log line is emitted here.
func (g *Gate) reject(sw *statusWriter, r *http.Request, start time.Time, err error) {
	httputil.WriteError(sw, err)
	g.logger.WarnContext(r.Context(), "request rejected",
		"client_key", requestcontext.ClientIP(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err.Error(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (g *Gate) blocked(reason string) {
	if g.metrics != nil {
		g.metrics.RequestsBlocked.WithLabelValues(reason).Inc()
	}
}

func setSecurityHeaders(w http.ResponseWriter) {
	for k, v := range securityHeaders {
		w.Header().Set(k, v)
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// statusWriter captures the handler's status and stamps X-Process-Time just
// before headers go out, the last moment it can still be set.
type statusWriter struct {
	http.ResponseWriter
	status int
	start  time.Time
	wrote  bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wrote {
		w.wrote = true
		w.status = status
		w.Header().Set("X-Process-Time", strconv.FormatFloat(time.Since(w.start).Seconds(), 'f', 3, 64))
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
