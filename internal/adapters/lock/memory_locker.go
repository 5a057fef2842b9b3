package lock

import (
	"context"
	"sync"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/apperrors"
	"github.com/SscSPs/rates_tracker_app/internal/core/ports/locking"
	"github.com/google/uuid"
)

// DefaultPollInterval is how often a waiting Acquire retries.
const DefaultPollInterval = 50 * time.Millisecond

type memoryLease struct {
	token   string
	expires time.Time
}

// MemoryLocker is a process-local locking.Locker with the same lease
// semantics as RedisLocker. Suitable for a single instance and for tests.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	poll  time.Duration
	clock func() time.Time
}

var _ locking.Locker = (*MemoryLocker)(nil)

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]memoryLease),
		poll:  DefaultPollInterval,
		clock: time.Now,
	}
}

// Acquire implements locking.Locker.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (locking.Guard, error) {
	token := uuid.NewString()
	deadline := l.clock().Add(wait)
	for {
		if l.tryAcquire(key, token, lease) {
			return &memoryGuard{locker: l, key: key, token: token}, nil
		}
		if !l.clock().Before(deadline) {
			return nil, apperrors.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

func (l *MemoryLocker) tryAcquire(key, token string, lease time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return false
	}
	l.held[key] = memoryLease{token: token, expires: now.Add(lease)}
	return true
}

func (l *MemoryLocker) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
}

// Held reports whether key is currently locked and unexpired.
func (l *MemoryLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.held[key]
	return ok && l.clock().Before(cur.expires)
}

type memoryGuard struct {
	locker *MemoryLocker
	key    string
	token  string
}

func (g *memoryGuard) Release(_ context.Context) error {
	g.locker.release(g.key, g.token)
	return nil
}
