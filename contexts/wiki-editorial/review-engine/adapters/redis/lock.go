package redisadapter

import (
	"context"
	"log/slog"
	"time"

	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	"quill/contexts/wiki-editorial/review-engine/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "quill:lock:"

// releaseScript deletes the lock key only when it still carries this
// holder's token, so an expired lease cannot release a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// LockCoordinator implements distributed locking with SET NX PX and a
// token-checked release. Acquisition polls until waitTime elapses.
type LockCoordinator struct {
	client       *redis.Client
	logger       *slog.Logger
	pollInterval time.Duration
}

func NewLockCoordinator(client *redis.Client, logger *slog.Logger) *LockCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LockCoordinator{
		client:       client,
		logger:       logger,
		pollInterval: 50 * time.Millisecond,
	}
}

func (c *LockCoordinator) WithLock(
	ctx context.Context,
	key string,
	waitTime time.Duration,
	leaseTime time.Duration,
	fn func(ctx context.Context) error,
) error {
	if waitTime <= 0 {
		waitTime = 3 * time.Second
	}
	if leaseTime <= 0 {
		leaseTime = 10 * time.Second
	}

	fullKey := lockKeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(waitTime)

	for {
		acquired, err := c.client.SetNX(ctx, fullKey, token, leaseTime).Result()
		if err != nil {
			return err
		}
		if acquired {
			break
		}
		if time.Now().After(deadline) {
			c.logger.Warn("lock acquisition timed out",
				"event", "lock_acquire_timeout",
				"layer", "adapter",
				"lock_key", key,
			)
			return domainerrors.ErrLockTimeout
		}
		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, c.client, []string{fullKey}, token).Err(); err != nil {
			c.logger.Error("lock release failed",
				"event", "lock_release_failed",
				"layer", "adapter",
				"lock_key", key,
				"error", err.Error(),
			)
		}
	}()

	return fn(ctx)
}

var _ ports.LockCoordinator = (*LockCoordinator)(nil)
