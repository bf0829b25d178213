// Package bucket provides sliding-window rate-limit stores.
package bucket

import (
	"context"
	"sync"
	"time"

	"attendgate/internal/ratelimit/models"
	"attendgate/pkg/requestcontext"
)

// InMemoryBucketStore implements ports.BucketStore with a mutex-guarded map.
// Suitable for a single gateway instance; multi-instance deployments share
// state through RedisBucketStore instead.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	entries map[string]*slidingWindow
}

// slidingWindow tracks request timestamps plus the punitive block marker for
// one client key.
type slidingWindow struct {
	timestamps   []time.Time
	blockedUntil time.Time
}

// NewInMemoryBucketStore creates an empty in-memory bucket store.
func NewInMemoryBucketStore() *InMemoryBucketStore {
	return &InMemoryBucketStore{entries: make(map[string]*slidingWindow)}
}

// Allow applies the sliding-window check for key. Time comes from the
// request-scoped clock so tests can advance it without sleeping.
func (s *InMemoryBucketStore) Allow(ctx context.Context, key string, limit int, window, blockFor time.Duration) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	sw := s.entries[key]
	if sw == nil {
		sw = &slidingWindow{}
		s.entries[key] = sw
	}

	// A blocked client is rejected outright; its window is neither pruned nor
	// extended, so the block outlives the original burst.
	if now.Before(sw.blockedUntil) {
		return blockedResult(limit, sw.blockedUntil, now, false), nil
	}

	sw.prune(now.Add(-window))

	if len(sw.timestamps) >= limit {
		sw.blockedUntil = now.Add(blockFor)
		return blockedResult(limit, sw.blockedUntil, now, true), nil
	}

	sw.timestamps = append(sw.timestamps, now)

	resetAt := sw.timestamps[0].Add(window)
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(sw.timestamps),
		ResetAt:   resetAt,
	}, nil
}

// Reset clears counter and block state for a key.
func (s *InMemoryBucketStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// StartJanitor evicts idle entries every interval until ctx is done. An entry
// is idle once its block has lapsed and its newest timestamp is older than
// window; keeping such entries would only grow the map.
func (s *InMemoryBucketStore) StartJanitor(ctx context.Context, interval, window time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.evict(now, window)
			}
		}
	}()
}

func (s *InMemoryBucketStore) evict(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sw := range s.entries {
		if now.Before(sw.blockedUntil) {
			continue
		}
		if len(sw.timestamps) == 0 || sw.timestamps[len(sw.timestamps)-1].Before(cutoff) {
			delete(s.entries, key)
		}
	}
}

// size reports the live entry count; test hook for janitor behavior.
func (s *InMemoryBucketStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (sw *slidingWindow) prune(cutoff time.Time) {
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

func blockedResult(limit int, blockedUntil, now time.Time, newly bool) *models.RateLimitResult {
	return &models.RateLimitResult{
		Allowed:      false,
		Limit:        limit,
		Remaining:    0,
		ResetAt:      blockedUntil,
		RetryAfter:   retryAfterSeconds(blockedUntil, now),
		Blocked:      true,
		BlockedUntil: blockedUntil,
		NewlyBlocked: newly,
	}
}

func retryAfterSeconds(until, now time.Time) int {
	secs := int(until.Sub(now).Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
