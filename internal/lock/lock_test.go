package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tokobaju-api/internal/lock"
)

func newLocker(t *testing.T) (*miniredis.Miniredis, lock.Locker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
}

func TestWithLockSerialises(t *testing.T) {
	_, locker := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var (
		order []string
		mu    sync.Mutex
		wg    sync.WaitGroup
	)
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = locker.WithLock(ctx, lock.CheckoutKey("u1"), time.Second, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
	}()
	<-firstDone
	go func() {
		defer wg.Done()
		_ = locker.WithLock(ctx, lock.CheckoutKey("u1"), time.Second, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
	}()
	time.Sleep(20 * time.Millisecond)
	close(releaseFirst)
	wg.Wait()

	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockGivesUpAfterMaxWait(t *testing.T) {
	mr, locker := newLocker(t)
	require.NoError(t, mr.Set(lock.CheckoutKey("u2"), "someone-else"))
	locker.MaxWait = 30 * time.Millisecond

	called := false
	err := locker.WithLock(context.Background(), lock.CheckoutKey("u2"), time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
	require.False(t, called)
}

func TestWithLockReleasesOwnTokenOnly(t *testing.T) {
	mr, locker := newLocker(t)
	key := lock.CheckoutKey("u3")
	err := locker.WithLock(context.Background(), key, time.Second, func(context.Context) error {
		require.True(t, mr.Exists(key))
		return nil
	})
	require.NoError(t, err)
	require.False(t, mr.Exists(key))
}
