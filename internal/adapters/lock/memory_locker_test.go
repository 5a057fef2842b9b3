package lock_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/adapters/lock"
	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	l := lock.NewMemoryLocker()

	g, err := l.Acquire(ctx, "A:USD:2024-01-05", time.Second, time.Second)
	require.NoError(t, err)
	assert.True(t, l.Held("A:USD:2024-01-05"))

	require.NoError(t, g.Release(ctx))
	assert.False(t, l.Held("A:USD:2024-01-05"))
}

func TestMemoryLocker_TimesOutWhileHeld(t *testing.T) {
	ctx := context.Background()
	l := lock.NewMemoryLocker()

	_, err := l.Acquire(ctx, "k", 0, time.Minute)
	require.NoError(t, err)

	start := time.Now()
	_, err = l.Acquire(ctx, "k", 120*time.Millisecond, time.Minute)
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestMemoryLocker_ZeroWaitStillTriesOnce(t *testing.T) {
	l := lock.NewMemoryLocker()
	_, err := l.Acquire(context.Background(), "k", 0, time.Second)
	assert.NoError(t, err)
}

func TestMemoryLocker_LeaseExpiry(t *testing.T) {
	ctx := context.Background()
	l := lock.NewMemoryLocker()

	stale, err := l.Acquire(ctx, "k", 0, 30*time.Millisecond)
	require.NoError(t, err)

	fresh, err := l.Acquire(ctx, "k", time.Second, time.Minute)
	require.NoError(t, err, "expired lease must be reclaimable")

	// the expired holder must not remove the new holder's lock
	require.NoError(t, stale.Release(ctx))
	assert.True(t, l.Held("k"))

	require.NoError(t, fresh.Release(ctx))
	assert.False(t, l.Held("k"))
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := lock.NewMemoryLocker()
	_, err := l.Acquire(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "k", time.Second, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryLocker_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	l := lock.NewMemoryLocker()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := l.Acquire(ctx, "k", 5*time.Second, 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			_ = g.Release(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}
