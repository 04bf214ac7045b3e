package queue

import (
	"net/url"
	"time"
)

// Item is one persisted unit of work.
type Item struct {
	Name           *url.URL
	Owner          *url.URL
	Content        any
	ExecuteTime    *time.Time
	ExecutionCount int64
	BlacklistTime  *time.Time
	CreatedAt      time.Time
}

// Queue returns the name of the queue holding the item.
func (i *Item) Queue() string {
	if i == nil || i.Name == nil {
		return ""
	}
	return i.Name.Opaque
}

// IsBlacklisted reports whether the item was abandoned.
func (i *Item) IsBlacklisted() bool {
	return i != nil && i.BlacklistTime != nil
}

// IsLaunched reports whether the item was dispatched at least once.
func (i *Item) IsLaunched() bool {
	return i != nil && i.ExecutionCount > 0
}

// Clone returns a deep copy safe to hand to callers.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Name = cloneURL(i.Name)
	cp.Owner = cloneURL(i.Owner)
	cp.ExecuteTime = cloneTime(i.ExecuteTime)
	cp.BlacklistTime = cloneTime(i.BlacklistTime)
	if b, ok := i.Content.([]byte); ok {
		cp.Content = append([]byte(nil), b...)
	}
	return &cp
}

// Summary aggregates the state of a queue for diagnostics.
type Summary struct {
	Queue       string
	ContentType string
	Total       int
	Pending     int
	Launched    int
	Blacklisted int
}

// Summarize counts items by lifecycle state.
func Summarize(queue, contentType string, items []*Item) Summary {
	s := Summary{Queue: queue, ContentType: contentType, Total: len(items)}
	for _, item := range items {
		switch {
		case item.IsBlacklisted():
			s.Blacklisted++
		case item.IsLaunched():
			s.Launched++
		default:
			s.Pending++
		}
	}
	return s
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	cp := *u
	if u.User != nil {
		user := *u.User
		cp.User = &user
	}
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
