package bucket

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"attendgate/internal/ratelimit/models"
	"attendgate/pkg/requestcontext"
)

const blockKeyPrefix = "rl:blocked:"

// RedisBucketStore implements ports.BucketStore on Redis so multiple gateway
// instances share one view of window counts and punitive blocks.
//
// Layout: a ZSET per client key holds request timestamps (score = unix nanos);
// a separate string key with PX expiry marks a blocked client, so the block
// expires server-side without any janitor.
type RedisBucketStore struct {
	client redis.UniversalClient
}

// NewRedisBucketStore constructs a Redis-backed bucket store.
func NewRedisBucketStore(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window, blockFor time.Duration) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)
	blockKey := blockKeyPrefix + key

	// Block check first: no pruning, no counting for a blocked client.
	ttl, err := s.client.PTTL(ctx, blockKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if ttl > 0 {
		return blockedResult(limit, now.Add(ttl), now, false), nil
	}

	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	var card *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	count := int(card.Val())
	if count >= limit {
		blockedUntil := now.Add(blockFor)
		if err := s.client.Set(ctx, blockKey, "1", blockFor).Err(); err != nil {
			return nil, err
		}
		return blockedResult(limit, blockedUntil, now, true), nil
	}

	member := redis.Z{Score: float64(now.UnixNano()), Member: strconv.FormatInt(now.UnixNano(), 10)}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, member)
		// The ZSET only needs to outlive the window; refresh on every hit.
		pipe.PExpire(ctx, key, window)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count - 1,
		ResetAt:   now.Add(window),
	}, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key, blockKeyPrefix+key).Err()
}
