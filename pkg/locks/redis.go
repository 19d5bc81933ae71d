package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultLeaseTTL  = 30 * time.Second
	acquirePollDelay = 50 * time.Millisecond
)

// releaseScript deletes the key only if this holder still owns it, so an
// expired lease reclaimed by another process is never released from here.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// RedisLocker is a lease-based Locker backed by Redis SET NX, for
// deployments running more than one API replica against shared storage.
type RedisLocker struct {
	client    redis.UniversalClient
	keyPrefix string
	leaseTTL  time.Duration
}

// NewRedisLocker creates a Redis-backed locker from a connection URL.
func NewRedisLocker(redisURL string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisLocker{
		client:    redis.NewClient(opts),
		keyPrefix: "assent:lock:",
		leaseTTL:  defaultLeaseTTL,
	}, nil
}

// Acquire polls SET NX until the lease is held or ctx is done.
func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := r.keyPrefix + key
	holder := uuid.New().String()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, holder, r.leaseTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}

		if ok {
			break
		}

		select {
		case <-time.After(acquirePollDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	release := func() {
		// Release must not inherit a canceled request context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = r.client.Eval(releaseCtx, releaseScript, []string{lockKey}, holder).Err()
	}

	return release, nil
}

// Close releases the underlying Redis client.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}
