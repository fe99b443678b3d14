package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

const defaultLockPollInterval = 50 * time.Millisecond

// unlockScript deletes the lock only if it still holds our token
var unlockScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLocker implements Locker with SET NX PX and a token-checked release
type RedisLocker struct {
	client       backend.UniversalClient
	prefix       string
	pollInterval time.Duration
}

// NewRedisLocker creates a locker whose keys are prefix+"lock:"+key
func NewRedisLocker(client backend.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{
		client:       client,
		prefix:       prefix,
		pollInterval: defaultLockPollInterval,
	}
}

// Lock blocks until the lock is acquired or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return unlockScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
