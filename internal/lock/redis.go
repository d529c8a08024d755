package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Redis is a lock shared by every process pointing at the same redis. The TTL bounds how long a
// crashed holder can block others.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: client, ttl: ttl, retry: 50 * time.Millisecond, prefix: "oee:lock:"}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	const op = "lock.Redis.Lock"

	if r.client == nil {
		return nil, errors.New("redis client not initialized")
	}

	fullKey := r.prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(r.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%s: %s: %w", op, key, ctx.Err())
		case <-timer.C:
		}
	}

	return func() {
		// released with a fresh context: the caller's may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.client.Eval(releaseCtx, releaseScript, []string{fullKey}, token).Err()
	}, nil
}
