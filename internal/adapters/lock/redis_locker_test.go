package lock_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/adapters/lock"
	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/locking"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := lock.NewRedisClient(context.Background(), "not a redis url")
	assert.Error(t, err)
}

// Runs against a real server when REDIS_TEST_URL is set, e.g. redis://localhost:6379/15.
func TestRedisLocker_Integration(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	client, err := lock.NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	l := lock.NewRedisLocker(client, lock.WithKeyPrefix("rates_tracker_test:"+uuid.NewString()+":"))
	var _ locking.Locker = l

	first, err := l.Acquire(ctx, "A:USD:2024-01-10", 0, 200*time.Millisecond)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "A:USD:2024-01-10", 100*time.Millisecond, time.Second)
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)

	// after the lease lapses a new holder gets in, and the stale guard can't evict it
	time.Sleep(250 * time.Millisecond)
	second, err := l.Acquire(ctx, "A:USD:2024-01-10", 0, time.Second)
	require.NoError(t, err)
	require.NoError(t, first.Release(ctx))

	_, err = l.Acquire(ctx, "A:USD:2024-01-10", 0, time.Second)
	assert.ErrorIs(t, err, apperrors.ErrLockTimeout)
	require.NoError(t, second.Release(ctx))
}
