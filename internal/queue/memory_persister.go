package queue

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryPersister keeps items in process memory. Items do not survive a
// restart; it suits transient queues and tests.
type MemoryPersister struct {
	queue       string
	contentType ContentType
	now         func() time.Time

	mu      sync.Mutex
	created bool
	items   map[string]*Item
	order   []string
}

// NewMemoryPersister returns an empty persister for queue.
func NewMemoryPersister(queue string, contentType ContentType, opts ...PersisterOption) (*MemoryPersister, error) {
	if contentType == nil {
		return nil, fmt.Errorf("%w: content type is required", ErrContentType)
	}
	if _, err := NewQueueName(queue); err != nil {
		return nil, err
	}
	o := newPersisterOptions(opts)
	return &MemoryPersister{
		queue:       queue,
		contentType: contentType,
		now:         o.now,
		items:       make(map[string]*Item),
	}, nil
}

func (p *MemoryPersister) isNil() bool { return p == nil }

func (p *MemoryPersister) CreateIfNotExist(context.Context) error {
	p.mu.Lock()
	p.created = true
	p.mu.Unlock()
	return nil
}

func (p *MemoryPersister) AddContent(_ context.Context, owner, name *url.URL, content any) (*Item, error) {
	if owner == nil {
		return nil, p.fail("add content", name, fmt.Errorf("%w: owner is required", ErrInvalidName))
	}
	key, err := p.key(name)
	if err != nil {
		return nil, p.fail("add content", name, err)
	}
	stored, err := p.normalize(content)
	if err != nil {
		return nil, p.fail("add content", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.items[key]; exists {
		return nil, p.fail("add content", name, ErrDuplicateContent)
	}
	item := &Item{
		Name:      cloneURL(name),
		Owner:     cloneURL(owner),
		Content:   stored,
		CreatedAt: p.now().UTC(),
	}
	p.created = true
	p.items[key] = item
	p.order = append(p.order, key)
	return item.Clone(), nil
}

func (p *MemoryPersister) HasContent(_ context.Context, name *url.URL) (bool, error) {
	key, err := p.key(name)
	if err != nil {
		return false, p.fail("has content", name, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.items[key]
	return ok, nil
}

func (p *MemoryPersister) SetLaunched(_ context.Context, name *url.URL) (*Item, error) {
	return p.modify("set launched", name, func(item *Item) {
		now := p.now().UTC()
		item.ExecutionCount++
		item.ExecuteTime = &now
	})
}

func (p *MemoryPersister) SetBlacklisted(_ context.Context, name *url.URL) (*Item, error) {
	return p.modify("set blacklisted", name, func(item *Item) {
		if item.BlacklistTime != nil {
			return
		}
		now := p.now().UTC()
		item.BlacklistTime = &now
	})
}

func (p *MemoryPersister) UpdateContent(_ context.Context, name *url.URL, content any) (*Item, error) {
	stored, err := p.normalize(content)
	if err != nil {
		return nil, p.fail("update content", name, err)
	}
	return p.modify("update content", name, func(item *Item) {
		item.Content = stored
	})
}

func (p *MemoryPersister) RemoveContent(_ context.Context, name *url.URL) (*Item, error) {
	key, err := p.key(name)
	if err != nil {
		return nil, p.fail("remove content", name, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[key]
	if !ok {
		return nil, p.fail("remove content", name, ErrNoSuchContent)
	}
	p.deleteLocked(key)
	return item, nil
}

func (p *MemoryPersister) GetInfo(_ context.Context, name *url.URL) (*Item, error) {
	key, err := p.key(name)
	if err != nil {
		return nil, p.fail("get info", name, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[key]
	if !ok {
		return nil, p.fail("get info", name, ErrNoSuchContent)
	}
	return item.Clone(), nil
}

func (p *MemoryPersister) ListKnownItems(context.Context) ([]*Item, error) {
	return p.filter(func(*Item) bool { return true }), nil
}

func (p *MemoryPersister) ListByOwner(_ context.Context, owner *url.URL) ([]*Item, error) {
	if owner == nil {
		return nil, p.fail("list by owner", nil, fmt.Errorf("%w: owner is required", ErrInvalidName))
	}
	want := owner.String()
	return p.filter(func(item *Item) bool { return item.Owner.String() == want }), nil
}

func (p *MemoryPersister) RemoveByOwner(_ context.Context, owner *url.URL) (int64, error) {
	if owner == nil {
		return 0, p.fail("remove by owner", nil, fmt.Errorf("%w: owner is required", ErrInvalidName))
	}
	want := owner.String()
	return p.removeWhere(func(item *Item) bool { return item.Owner.String() == want }), nil
}

func (p *MemoryPersister) RemoveBlacklisted(_ context.Context, from time.Time) (int64, error) {
	return p.removeWhere(func(item *Item) bool {
		return item.BlacklistTime != nil && item.BlacklistTime.Before(from)
	}), nil
}

func (p *MemoryPersister) key(name *url.URL) (string, error) {
	return checkName(p.queue, name)
}

// normalize round-trips content through the codec so stored payloads have
// the same shape the document persister returns.
func (p *MemoryPersister) normalize(content any) (any, error) {
	data, err := p.contentType.Encode(content)
	if err != nil {
		return nil, err
	}
	return p.contentType.Decode(data)
}

func (p *MemoryPersister) modify(op string, name *url.URL, mutate func(*Item)) (*Item, error) {
	key, err := p.key(name)
	if err != nil {
		return nil, p.fail(op, name, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[key]
	if !ok {
		return nil, p.fail(op, name, ErrNoSuchContent)
	}
	mutate(item)
	return item.Clone(), nil
}

func (p *MemoryPersister) filter(keep func(*Item) bool) []*Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]*Item, 0, len(p.order))
	for _, key := range p.order {
		if item := p.items[key]; keep(item) {
			items = append(items, item.Clone())
		}
	}
	return items
}

func (p *MemoryPersister) removeWhere(match func(*Item) bool) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var removed int64
	for _, key := range append([]string(nil), p.order...) {
		if match(p.items[key]) {
			p.deleteLocked(key)
			removed++
		}
	}
	return removed
}

func (p *MemoryPersister) deleteLocked(key string) {
	delete(p.items, key)
	for i, k := range p.order {
		if k == key {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

func (p *MemoryPersister) fail(op string, name *url.URL, err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	e := &Error{Op: op, Queue: p.queue, Err: err}
	if name != nil {
		e.Name = name.String()
	}
	return e
}
