package queue

import (
	"context"
	"net/url"
	"time"
)

// Persister stores the items of one queue. Each method is atomic with
// respect to the backing store; no atomicity spans two calls.
type Persister interface {
	// CreateIfNotExist ensures the queue's backing container exists.
	CreateIfNotExist(ctx context.Context) error
	// AddContent stores a new item and fails with ErrDuplicateContent when
	// the name is taken, leaving the existing item untouched.
	AddContent(ctx context.Context, owner, name *url.URL, content any) (*Item, error)
	HasContent(ctx context.Context, name *url.URL) (bool, error)
	// SetLaunched increments the execution count and stamps the execute time.
	SetLaunched(ctx context.Context, name *url.URL) (*Item, error)
	SetBlacklisted(ctx context.Context, name *url.URL) (*Item, error)
	// RemoveContent deletes the item and returns its last snapshot.
	RemoveContent(ctx context.Context, name *url.URL) (*Item, error)
	// UpdateContent replaces the payload without touching execution bookkeeping.
	UpdateContent(ctx context.Context, name *url.URL, content any) (*Item, error)
	ListKnownItems(ctx context.Context) ([]*Item, error)
	ListByOwner(ctx context.Context, owner *url.URL) ([]*Item, error)
	RemoveByOwner(ctx context.Context, owner *url.URL) (int64, error)
	// RemoveBlacklisted deletes items blacklisted strictly before from.
	RemoveBlacklisted(ctx context.Context, from time.Time) (int64, error)
	// GetInfo returns the item or ErrNoSuchContent.
	GetInfo(ctx context.Context, name *url.URL) (*Item, error)
}

// PersisterOption customizes the built-in persisters.
type PersisterOption func(*persisterOptions)

type persisterOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for execute and blacklist stamps.
func WithClock(now func() time.Time) PersisterOption {
	return func(o *persisterOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func newPersisterOptions(opts []PersisterOption) persisterOptions {
	o := persisterOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// checkName verifies that name is a content URI of queue.
func checkName(queue string, name *url.URL) (string, error) {
	q, err := QueueNameOf(name)
	if err != nil {
		return "", err
	}
	if q != queue {
		return "", &Error{Op: "resolve", Queue: queue, Name: name.String(), Err: ErrInvalidName}
	}
	return ItemOf(name)
}
