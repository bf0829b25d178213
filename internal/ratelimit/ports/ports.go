// Package ports defines shared interfaces for the ratelimit module.
package ports

import (
	"context"
	"time"

	"attendgate/internal/ratelimit/models"
)

// BucketStore manages sliding-window counters with punitive blocking.
//
// Contract, per request:
//   - a client inside its block window is rejected without pruning or counting;
//   - otherwise timestamps older than now-window are pruned;
//   - if the pruned count has reached limit, the client is blocked for blockFor
//     and rejected, with NewlyBlocked set on the transition;
//   - otherwise the request is counted and allowed.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window, blockFor time.Duration) (*models.RateLimitResult, error)

	// Reset clears counter and block state for a key.
	Reset(ctx context.Context, key string) error
}
