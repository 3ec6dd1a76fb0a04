package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock could not be taken within MaxWait.
var ErrNotAcquired = errors.New("lock: not acquired")

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Locker serialises work per key using a Redis SET NX token.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
	// MaxWait bounds how long WithLock polls before giving up. Zero waits until ctx is done.
	MaxWait time.Duration
}

// CheckoutKey scopes order placement to a single caller.
func CheckoutKey(owner string) string {
	return "lock:checkout:" + owner
}

// WithLock runs fn while holding key. The lock is released after fn returns,
// and only if the token still matches, so an expired holder never frees a newer one.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	var deadline <-chan time.Time
	if l.MaxWait > 0 {
		t := time.NewTimer(l.MaxWait)
		defer t.Stop()
		deadline = t.C
	}

	token := uuid.NewString()
	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer func() { _ = releaseScript.Run(context.Background(), l.R, []string{key}, token).Err() }()
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-deadline:
			timer.Stop()
			return ErrNotAcquired
		case <-timer.C:
		}
	}
}
