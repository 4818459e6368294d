package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// Redis is a Locker shared by every process using the same server, built on
// SET NX PX with a per-acquisition token.
type Redis struct {
	client   backend.UniversalClient
	prefix   string
	interval time.Duration
}

func NewRedis(client backend.UniversalClient, prefix string) *Redis {
	return &Redis{
		client:   client,
		prefix:   prefix,
		interval: 50 * time.Millisecond,
	}
}

func (r *Redis) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	lockKey := r.prefix + "lock:" + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		acquired, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w %s: %w", ErrLockAcquire, key, ctx.Err())
			}

			return nil, fmt.Errorf("redis error acquiring lock: %w", err)
		}

		if acquired {
			return func(ctx context.Context) error {
				return r.client.Eval(ctx, unlockScript, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w %s: %w", ErrLockAcquire, key, ctx.Err())
		case <-ticker.C:
		}
	}
}
