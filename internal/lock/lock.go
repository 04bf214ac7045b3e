package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"nxqueue/internal/config"
)

var (
	// ErrAlreadyLocked indicates the resource stayed locked for the whole wait.
	ErrAlreadyLocked = errors.New("resource already locked")
	// ErrNoSuchLock indicates unlock found no lock on the resource.
	ErrNoSuchLock = errors.New("no such lock")
	// ErrNotOwner indicates the resource is locked by a different owner.
	ErrNotOwner = errors.New("lock held by another owner")
	// ErrLockExpired indicates the caller's lease lapsed before unlock.
	ErrLockExpired = errors.New("lock expired")
)

// Coordinator grants exclusive advisory locks on resources.
type Coordinator interface {
	// Lock acquires resource for owner, waiting up to wait for a competing
	// holder to release it. It returns ErrAlreadyLocked when the wait elapses.
	Lock(ctx context.Context, owner, resource, comment string, wait time.Duration) error
	// Unlock releases a lock previously acquired by owner.
	Unlock(ctx context.Context, owner, resource string) error
	Close() error
}

// New builds the coordinator selected by the locking configuration.
func New(cfg *config.Config) (Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	switch strings.ToLower(cfg.Locking.Backend) {
	case config.LockBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Locking.RedisAddr,
			Password: cfg.Locking.RedisPassword,
			DB:       cfg.Locking.RedisDB,
		})
		return NewRedisCoordinator(client, cfg.Locking.KeyPrefix, cfg.LockLease()), nil
	case config.LockBackendFile, "":
		return NewFileCoordinator(cfg.Locking.Dir)
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", cfg.Locking.Backend)
	}
}

func waitDeadline(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}
