package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

const fileRetryDelay = 20 * time.Millisecond

type fileHolder struct {
	Owner      string    `json:"owner"`
	Resource   string    `json:"resource"`
	Comment    string    `json:"comment,omitempty"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

type heldFile struct {
	owner string
	lock  *flock.Flock
}

// FileCoordinator serializes resources through flock(2) files in one directory.
// Locks do not expire; they are released by Unlock or when the process exits.
type FileCoordinator struct {
	dir  string
	mu   sync.Mutex
	held map[string]heldFile
}

// NewFileCoordinator prepares dir and verifies it is writable.
func NewFileCoordinator(dir string) (*FileCoordinator, error) {
	if dir == "" {
		return nil, errors.New("lock directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return nil, fmt.Errorf("lock directory %s not writable: %w", dir, err)
	}
	return &FileCoordinator{dir: dir, held: make(map[string]heldFile)}, nil
}

func (c *FileCoordinator) lockPath(resource string) string {
	sum := sha256.Sum256([]byte(resource))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:16])+".lock")
}

// Lock acquires resource for owner.
func (c *FileCoordinator) Lock(ctx context.Context, owner, resource, comment string, wait time.Duration) error {
	path := c.lockPath(resource)
	fl := flock.New(path)

	var (
		ok  bool
		err error
	)
	if wait <= 0 {
		ok, err = fl.TryLock()
	} else {
		waitCtx, cancel := waitDeadline(ctx, wait)
		ok, err = fl.TryLockContext(waitCtx, fileRetryDelay)
		cancel()
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("lock %s: %w", resource, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlreadyLocked, resource)
	}

	holder := fileHolder{
		Owner:      owner,
		Resource:   resource,
		Comment:    comment,
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	}
	if data, err := json.Marshal(holder); err == nil {
		if err := os.WriteFile(path+".owner", data, 0o644); err != nil {
			_ = fl.Unlock()
			return fmt.Errorf("record lock owner: %w", err)
		}
	}

	c.mu.Lock()
	c.held[resource] = heldFile{owner: owner, lock: fl}
	c.mu.Unlock()
	return nil
}

// Unlock releases resource if owner holds it.
func (c *FileCoordinator) Unlock(_ context.Context, owner, resource string) error {
	path := c.lockPath(resource)

	c.mu.Lock()
	entry, ok := c.held[resource]
	if ok && entry.owner == owner {
		delete(c.held, resource)
	}
	c.mu.Unlock()

	if !ok {
		if holder, err := readHolder(path + ".owner"); err == nil && holder.Owner != owner {
			return fmt.Errorf("%w: %s held by %s", ErrNotOwner, resource, holder.Owner)
		}
		return fmt.Errorf("%w: %s", ErrNoSuchLock, resource)
	}
	if entry.owner != owner {
		return fmt.Errorf("%w: %s held by %s", ErrNotOwner, resource, entry.owner)
	}

	_ = os.Remove(path + ".owner")
	if err := entry.lock.Unlock(); err != nil {
		return fmt.Errorf("unlock %s: %w", resource, err)
	}
	return nil
}

// Close releases every lock this coordinator still holds.
func (c *FileCoordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for resource, entry := range c.held {
		_ = os.Remove(c.lockPath(resource) + ".owner")
		if err := entry.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
		delete(c.held, resource)
	}
	return errors.Join(errs...)
}

func readHolder(path string) (fileHolder, error) {
	var holder fileHolder
	data, err := os.ReadFile(path)
	if err != nil {
		return holder, err
	}
	if err := json.Unmarshal(data, &holder); err != nil {
		return holder, err
	}
	return holder, nil
}
