package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
)

// Backend reports whether another event for key fits inside the window.
type Backend interface {
	Allow(ctx context.Context, key string, window time.Duration, limit int) (allowed bool, remaining int, reset time.Time, err error)
}

// SlidingWindow implements a sliding window limiter backed by Redis sorted sets.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

// Allow registers an event for the given key and returns whether it is within the limit.
func (l SlidingWindow) Allow(ctx context.Context, key string, window time.Duration, limit int) (bool, int, time.Time, error) {
	if l.Client == nil || limit <= 0 || window <= 0 {
		return true, limit, time.Now().Add(window), nil
	}

	now := time.Now()
	until := now.Add(window)
	cutoff := float64(now.Add(-window).UnixNano())
	redisKey := l.Prefix + key

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, until, err
	}

	current := int(countCmd.Val())
	return current <= limit, max(0, limit-current), until, nil
}

// Fixed adapts a ulule limiter store to Backend using fixed windows.
type Fixed struct {
	Store limiter.Store
}

// Allow increments the counter for key in its current window.
func (f Fixed) Allow(ctx context.Context, key string, window time.Duration, limit int) (bool, int, time.Time, error) {
	if f.Store == nil || limit <= 0 || window <= 0 {
		return true, limit, time.Now().Add(window), nil
	}
	lctx, err := f.Store.Get(ctx, key, limiter.Rate{Period: window, Limit: int64(limit)})
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !lctx.Reached, int(lctx.Remaining), time.Unix(lctx.Reset, 0), nil
}
