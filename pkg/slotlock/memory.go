package slotlock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is the single-process fallback used when no Redis is
// configured.
type MemoryLocker struct {
	opts Options

	mu    sync.Mutex
	held  map[string]lease
	clock func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

func NewMemoryLocker(opts Options) *MemoryLocker {
	return &MemoryLocker{
		opts:  opts.withDefaults(),
		held:  make(map[string]lease),
		clock: time.Now,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	return acquire(ctx, l, l.opts, key)
}

func (l *MemoryLocker) tryLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return false, nil
	}
	l.held[key] = lease{token: token, expires: now.Add(ttl)}
	return true, nil
}

func (l *MemoryLocker) unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
