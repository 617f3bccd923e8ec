package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance that talks to the same
// Redis. Each acquisition stores a random token under the key with a TTL so
// a crashed holder cannot block the key forever; release only deletes the
// key while it still holds the caller's token.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, retry: 20 * time.Millisecond}
}

// Lock polls SET NX until it wins or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	k := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", k, err)
		}
		if ok {
			return func() {
				// Release on a fresh context: the caller's may already be done.
				c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(c, l.client, []string{k}, token).Err()
			}, nil
		}

		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

// IsTimeout reports whether err came from a Lock call whose context expired.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
