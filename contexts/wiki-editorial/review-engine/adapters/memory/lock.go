package memory

import (
	"context"
	"sync"
	"time"

	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
)

// LockCoordinator serializes critical sections per key inside one process.
// Lease time is ignored here; the lock releases when fn returns.
type LockCoordinator struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLockCoordinator() *LockCoordinator {
	return &LockCoordinator{locks: make(map[string]chan struct{})}
}

func (c *LockCoordinator) WithLock(
	ctx context.Context,
	key string,
	waitTime time.Duration,
	_ time.Duration,
	fn func(ctx context.Context) error,
) error {
	if waitTime <= 0 {
		waitTime = 3 * time.Second
	}
	deadline := time.NewTimer(waitTime)
	defer deadline.Stop()

	for {
		c.mu.Lock()
		held, ok := c.locks[key]
		if !ok {
			held = make(chan struct{})
			c.locks[key] = held
			c.mu.Unlock()

			defer func() {
				c.mu.Lock()
				delete(c.locks, key)
				close(held)
				c.mu.Unlock()
			}()
			return fn(ctx)
		}
		c.mu.Unlock()

		select {
		case <-held:
			// Holder released; retry acquisition.
		case <-deadline.C:
			return domainerrors.ErrLockTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
