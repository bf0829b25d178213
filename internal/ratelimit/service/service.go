// Package service applies the gateway's rate-limit policy on top of a bucket
// store and owns the audit side effects.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"attendgate/internal/platform/metrics"
	"attendgate/internal/ratelimit/models"
	"attendgate/internal/ratelimit/ports"
	"attendgate/internal/security"
	"attendgate/internal/security/audit"
)

// Service checks requests against the sliding-window policy.
type Service struct {
	store    ports.BucketStore
	limit    int
	window   time.Duration
	blockFor time.Duration

	logger  *slog.Logger
	audit   *audit.Recorder
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAudit(recorder *audit.Recorder) Option {
	return func(s *Service) { s.audit = recorder }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a rate-limit service. limit and window must be positive.
func New(store ports.BucketStore, limit int, window, blockFor time.Duration, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("bucket store is required")
	}
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("invalid rate limit policy: limit=%d window=%s", limit, window)
	}

	s := &Service{
		store:    store,
		limit:    limit,
		window:   window,
		blockFor: blockFor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Window returns the configured window duration.
func (s *Service) Window() time.Duration {
	return s.window
}

// Check runs the sliding-window check for clientKey. A store error fails open:
// losing rate limiting briefly beats refusing all traffic.
func (s *Service) Check(ctx context.Context, clientKey string) *models.RateLimitResult {
	result, err := s.store.Allow(ctx, models.ClientKey(clientKey), s.limit, s.window, s.blockFor)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "rate limit store failure, allowing request", "error", err, "client_key", clientKey)
		}
		return &models.RateLimitResult{Allowed: true, Limit: s.limit, Remaining: 0}
	}

	if result.NewlyBlocked {
		if s.metrics != nil {
			s.metrics.RateLimitBlocks.Inc()
		}
		if s.audit != nil {
			s.audit.Record(ctx, security.EventRateLimitExceeded, security.SeverityHigh, clientKey,
				fmt.Sprintf("threshold %d/%s exceeded, blocked for %s", s.limit, s.window, s.blockFor))
		}
	}

	return result
}
