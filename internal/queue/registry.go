package queue

import (
	"fmt"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
)

// Entry binds a queue to its content type, persister and processor.
type Entry struct {
	Queue       string
	ContentType ContentType
	Persister   Persister
	Processor   Processor
	// MaxExecutions blacklists an item once a failed run reaches this count.
	// Zero disables the limit.
	MaxExecutions int
}

// EntryOption customizes a registration.
type EntryOption func(*Entry)

// WithMaxExecutions sets the failure threshold for automatic blacklisting.
func WithMaxExecutions(n int) EntryOption {
	return func(e *Entry) {
		if n > 0 {
			e.MaxExecutions = n
		}
	}
}

type entries map[string]*Entry

// Registry maps queue names to entries. Lookups read an immutable snapshot;
// Register copies the snapshot and swaps it in.
type Registry struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[entries]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := entries{}
	r.snapshot.Store(&empty)
	return r
}

// Register stores or replaces the entry for queue.
func (r *Registry) Register(queue string, contentType ContentType, persister Persister, processor Processor, opts ...EntryOption) error {
	if _, err := NewQueueName(queue); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRegistration, err)
	}
	switch {
	case isNil(contentType):
		return fmt.Errorf("%w: queue %s has no content type", ErrInvalidRegistration, queue)
	case isNil(persister):
		return fmt.Errorf("%w: queue %s has no persister", ErrInvalidRegistration, queue)
	case isNil(processor):
		return fmt.Errorf("%w: queue %s has no processor", ErrInvalidRegistration, queue)
	}

	entry := &Entry{
		Queue:       queue,
		ContentType: contentType,
		Persister:   persister,
		Processor:   processor,
	}
	for _, opt := range opts {
		opt(entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current := *r.snapshot.Load()
	next := make(entries, len(current)+1)
	for name, e := range current {
		next[name] = e
	}
	next[queue] = entry
	r.snapshot.Store(&next)
	return nil
}

// nilable is implemented by the package's pointer and func components so a
// typed nil held by an interface is still rejected.
type nilable interface {
	isNil() bool
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	n, ok := v.(nilable)
	return ok && n.isNil()
}

// Entry returns the registration of queue.
func (r *Registry) Entry(queue string) (*Entry, error) {
	entry, ok := (*r.snapshot.Load())[queue]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQueueNotFound, queue)
	}
	return entry, nil
}

// Lookup resolves a queue or content URI to its registration.
func (r *Registry) Lookup(name *url.URL) (*Entry, error) {
	queue, err := QueueNameOf(name)
	if err != nil {
		return nil, err
	}
	return r.Entry(queue)
}

// Persister resolves the persister responsible for name.
func (r *Registry) Persister(name *url.URL) (Persister, error) {
	entry, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.Persister, nil
}

// Processor resolves the processor responsible for name.
func (r *Registry) Processor(name *url.URL) (Processor, error) {
	entry, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return entry.Processor, nil
}

// Queues lists registered queue names in order.
func (r *Registry) Queues() []string {
	current := *r.snapshot.Load()
	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewQueueName builds the URI of a queue.
func (r *Registry) NewQueueName(queue string) (*url.URL, error) {
	return NewQueueName(queue)
}

// NewContentName builds the URI of an item in queue.
func (r *Registry) NewContentName(queue, item string) (*url.URL, error) {
	return NewContentName(queue, item)
}
