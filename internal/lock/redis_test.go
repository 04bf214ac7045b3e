package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"nxqueue/internal/lock"
)

func newRedisCoordinator(t *testing.T, lease time.Duration) (*lock.RedisCoordinator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := lock.NewRedisCoordinator(client, "test:lock:", lease)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCoordinatorLockUnlock(t *testing.T) {
	c, mr := newRedisCoordinator(t, time.Minute)
	ctx := context.Background()

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := c.Lock(ctx, "owner-a", "nxqueue:q#1", "", 0); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if got, _ := mr.Get("test:lock:nxqueue:q#1"); got != "owner-a" {
		t.Fatalf("expected owner-a stored, got %q", got)
	}
	if err := c.Lock(ctx, "owner-b", "nxqueue:q#1", "", 60*time.Millisecond); !errors.Is(err, lock.ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked, got %v", err)
	}
	if err := c.Unlock(ctx, "owner-b", "nxqueue:q#1"); !errors.Is(err, lock.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := c.Unlock(ctx, "owner-a", "nxqueue:q#1"); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if mr.Exists("test:lock:nxqueue:q#1") {
		t.Fatal("expected key to be deleted")
	}
	if err := c.Unlock(ctx, "owner-a", "nxqueue:q#1"); !errors.Is(err, lock.ErrNoSuchLock) {
		t.Fatalf("expected ErrNoSuchLock, got %v", err)
	}
}

func TestRedisCoordinatorReportsExpiredLease(t *testing.T) {
	c, mr := newRedisCoordinator(t, time.Second)
	ctx := context.Background()

	if err := c.Lock(ctx, "owner-a", "res", "", 0); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	mr.FastForward(2 * time.Second)

	if err := c.Unlock(ctx, "owner-a", "res"); !errors.Is(err, lock.ErrLockExpired) {
		t.Fatalf("expected ErrLockExpired, got %v", err)
	}
}

func TestRedisCoordinatorAcquiresAfterExpiry(t *testing.T) {
	c, mr := newRedisCoordinator(t, time.Second)
	ctx := context.Background()

	if err := c.Lock(ctx, "owner-a", "res", "", 0); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if err := c.Lock(ctx, "owner-b", "res", "", 0); err != nil {
		t.Fatalf("expected lock after lease expiry, got %v", err)
	}
}
