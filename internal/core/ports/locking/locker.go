package locking

import (
	"context"
	"time"
)

// Guard is a held lock. Release is safe to call after the lease expired: it
// never removes a lock that was since acquired by someone else.
type Guard interface {
	Release(ctx context.Context) error
}

// Locker hands out named, time-limited exclusive locks.
type Locker interface {
	// Acquire blocks up to wait for key. The lock expires after lease even if
	// never released. Returns apperrors.ErrLockTimeout when wait elapses.
	Acquire(ctx context.Context, key string, wait, lease time.Duration) (Guard, error)
}

// Policy is how long to wait for a lock and how long to hold it.
type Policy struct {
	Wait  time.Duration
	Lease time.Duration
}

// DefaultPolicy waits 2s and leases for 10s.
var DefaultPolicy = Policy{Wait: 2 * time.Second, Lease: 10 * time.Second}

// WithLock runs fn while holding key. fn gets a context bounded by the lease.
// The lock is released on every exit of fn, panics included.
func WithLock(ctx context.Context, l Locker, key string, p Policy, fn func(ctx context.Context) error) error {
	guard, err := l.Acquire(ctx, key, p.Wait, p.Lease)
	if err != nil {
		return err
	}
	defer func() {
		// release must run even when ctx is already done
		_ = guard.Release(context.WithoutCancel(ctx))
	}()

	leaseCtx, cancel := context.WithTimeout(ctx, p.Lease)
	defer cancel()
	return fn(leaseCtx)
}
