package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPollInterval = 25 * time.Millisecond

// releaseScript deletes the key only when it still carries the caller's owner.
// It returns 1 on release, -1 when another owner holds the key and 0 when the
// key is gone.
var releaseScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return -1
end
redis.call("DEL", KEYS[1])
return 1
`)

// RedisCoordinator grants leases stored as Redis keys. A lease that outlives
// its TTL is dropped by Redis and reported as ErrLockExpired on unlock.
type RedisCoordinator struct {
	client *redis.Client
	prefix string
	lease  time.Duration

	mu      sync.Mutex
	granted map[string]string
}

// NewRedisCoordinator wraps client. Keys are namespaced with prefix.
func NewRedisCoordinator(client *redis.Client, prefix string, lease time.Duration) *RedisCoordinator {
	if lease <= 0 {
		lease = 5 * time.Minute
	}
	return &RedisCoordinator{
		client:  client,
		prefix:  prefix,
		lease:   lease,
		granted: make(map[string]string),
	}
}

func (c *RedisCoordinator) key(resource string) string {
	return c.prefix + resource
}

// Lock acquires resource for owner, polling until wait elapses.
func (c *RedisCoordinator) Lock(ctx context.Context, owner, resource, _ string, wait time.Duration) error {
	waitCtx, cancel := waitDeadline(ctx, wait)
	defer cancel()

	key := c.key(resource)
	for {
		ok, err := c.client.SetNX(ctx, key, owner, c.lease).Result()
		if err != nil {
			return fmt.Errorf("lock %s: %w", resource, err)
		}
		if ok {
			c.mu.Lock()
			c.granted[resource] = owner
			c.mu.Unlock()
			return nil
		}
		if wait <= 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyLocked, resource)
		}
		select {
		case <-time.After(redisPollInterval):
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return fmt.Errorf("lock %s: %w", resource, ctx.Err())
			}
			return fmt.Errorf("%w: %s", ErrAlreadyLocked, resource)
		}
	}
}

// Unlock releases resource when owner still holds its lease.
func (c *RedisCoordinator) Unlock(ctx context.Context, owner, resource string) error {
	c.mu.Lock()
	grantedTo, granted := c.granted[resource]
	if granted && grantedTo == owner {
		delete(c.granted, resource)
	}
	c.mu.Unlock()

	res, err := releaseScript.Run(ctx, c.client, []string{c.key(resource)}, owner).Int()
	if err != nil {
		return fmt.Errorf("unlock %s: %w", resource, err)
	}
	switch res {
	case 1:
		return nil
	case -1:
		return fmt.Errorf("%w: %s", ErrNotOwner, resource)
	default:
		if granted && grantedTo == owner {
			return fmt.Errorf("%w: %s", ErrLockExpired, resource)
		}
		return fmt.Errorf("%w: %s", ErrNoSuchLock, resource)
	}
}

// Ping checks connectivity to Redis.
func (c *RedisCoordinator) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (c *RedisCoordinator) Close() error {
	if err := c.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
