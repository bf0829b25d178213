// Package audit records security events to the structured log and a bounded
// in-memory ring for diagnostics and tests.
package audit

import (
	"context"
	"log/slog"
	"sync"

	"attendgate/internal/platform/metrics"
	"attendgate/internal/security"
	"attendgate/pkg/requestcontext"
)

const defaultRingSize = 256

// Recorder is the sink for security events. HIGH severity logs at error level,
// MEDIUM at warn, matching how operators alert on them.
type Recorder struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	ring   []security.Event
	next   int
	filled bool
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMetrics wires the security-event counter.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// New creates a Recorder writing to logger.
func New(logger *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		logger: logger,
		ring:   make([]security.Event, defaultRingSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record emits an event built from the request context. The event time comes
// from the request-scoped clock so audit entries line up with rate-limit math.
func (r *Recorder) Record(ctx context.Context, eventType string, severity security.Severity, clientKey, details string) security.Event {
	ev := security.NewEvent(requestcontext.Now(ctx), eventType, severity, clientKey, details)

	attrs := []any{
		"event_id", ev.ID,
		"event", ev.Type,
		"severity", string(ev.Severity),
		"client_key", ev.ClientKey,
		"details", ev.Details,
		"log_type", "audit",
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	if r.logger != nil {
		if ev.Severity == security.SeverityHigh {
			r.logger.ErrorContext(ctx, "security alert", attrs...)
		} else {
			r.logger.WarnContext(ctx, "security event", attrs...)
		}
	}

	if r.metrics != nil {
		r.metrics.SecurityEvents.WithLabelValues(ev.Type, string(ev.Severity)).Inc()
	}

	r.mu.Lock()
	r.ring[r.next] = ev
	r.next++
	if r.next == len(r.ring) {
		r.next = 0
		r.filled = true
	}
	r.mu.Unlock()

	return ev
}

// Recent returns the retained events, oldest first.
func (r *Recorder) Recent() []security.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.filled {
		out := make([]security.Event, r.next)
		copy(out, r.ring[:r.next])
		return out
	}
	out := make([]security.Event, 0, len(r.ring))
	out = append(out, r.ring[r.next:]...)
	out = append(out, r.ring[:r.next]...)
	return out
}
