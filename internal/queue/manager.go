package queue

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"nxqueue/internal/logging"
	"nxqueue/internal/metrics"
)

// Manager exposes maintenance operations for one queue. It resolves the
// queue's entry on every call so re-registration takes effect immediately.
type Manager struct {
	queue     string
	handler   *Handler
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithRetention keeps blacklisted items for d before they may be purged.
func WithRetention(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.retention = d
		}
	}
}

// WithManagerClock overrides the time source used to compute purge cut-offs.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithManagerLogger sets the manager logger.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithManagerMetrics records purges in mt.
func WithManagerMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager returns the manager of queue.
func NewManager(queue string, handler *Handler, opts ...ManagerOption) *Manager {
	m := &Manager{
		queue:   queue,
		handler: handler,
		now:     time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "queue-manager").With(logging.Queue(queue))
	return m
}

// Managers returns a manager for every registered queue.
func Managers(handler *Handler, opts ...ManagerOption) []*Manager {
	queues := handler.Registry().Queues()
	managers := make([]*Manager, 0, len(queues))
	for _, queue := range queues {
		managers = append(managers, NewManager(queue, handler, opts...))
	}
	return managers
}

// Name returns the managed queue name.
func (m *Manager) Name() string { return m.queue }

func (m *Manager) entry() (*Entry, error) {
	return m.handler.Registry().Entry(m.queue)
}

func (m *Manager) persister() (Persister, error) {
	entry, err := m.entry()
	if err != nil {
		return nil, err
	}
	return entry.Persister, nil
}

// ContentName builds a content URI in this queue.
func (m *Manager) ContentName(item string) (*url.URL, error) {
	return NewContentName(m.queue, item)
}

// ListHandledItems returns every item of the queue.
func (m *Manager) ListHandledItems(ctx context.Context) ([]*Item, error) {
	p, err := m.persister()
	if err != nil {
		return nil, err
	}
	return p.ListKnownItems(ctx)
}

// ListOwnedItems returns the items submitted for owner.
func (m *Manager) ListOwnedItems(ctx context.Context, owner *url.URL) ([]*Item, error) {
	p, err := m.persister()
	if err != nil {
		return nil, err
	}
	return p.ListByOwner(ctx, owner)
}

// KnowsContent reports whether name is stored.
func (m *Manager) KnowsContent(ctx context.Context, name *url.URL) (bool, error) {
	p, err := m.persister()
	if err != nil {
		return false, err
	}
	return p.HasContent(ctx, name)
}

// Info returns the stored item.
func (m *Manager) Info(ctx context.Context, name *url.URL) (*Item, error) {
	p, err := m.persister()
	if err != nil {
		return nil, err
	}
	return p.GetInfo(ctx, name)
}

// Summary counts the queue's items by state.
func (m *Manager) Summary(ctx context.Context) (Summary, error) {
	entry, err := m.entry()
	if err != nil {
		return Summary{}, err
	}
	items, err := entry.Persister.ListKnownItems(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(m.queue, entry.ContentType.Name(), items), nil
}

// Blacklist abandons name so it is never dispatched again.
func (m *Manager) Blacklist(ctx context.Context, name *url.URL) (*Item, error) {
	p, err := m.persister()
	if err != nil {
		return nil, err
	}
	item, err := p.SetBlacklisted(ctx, name)
	if err != nil {
		return nil, err
	}
	m.logger.Info("content blacklisted", logging.Content(name))
	return item, nil
}

// ForgetContent deletes name and returns its last snapshot.
func (m *Manager) ForgetContent(ctx context.Context, name *url.URL) (*Item, error) {
	p, err := m.persister()
	if err != nil {
		return nil, err
	}
	item, err := p.RemoveContent(ctx, name)
	if err != nil {
		return nil, err
	}
	m.logger.Info("content removed", logging.Content(name))
	return item, nil
}

// ForgetOwner deletes every item of owner.
func (m *Manager) ForgetOwner(ctx context.Context, owner *url.URL) (int64, error) {
	p, err := m.persister()
	if err != nil {
		return 0, err
	}
	removed, err := p.RemoveByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	m.logger.Info("owner content removed",
		logging.Owner(owner),
		logging.Int64("removed", removed),
	)
	return removed, nil
}

// UpdateContent replaces the payload of name.
func (m *Manager) UpdateContent(ctx context.Context, name *url.URL, content any) (*Item, error) {
	p, err := m.persister()
	if err != nil {
		return nil, err
	}
	return p.UpdateContent(ctx, name, content)
}

// PurgeBlacklisted removes items blacklisted longer than the retention.
func (m *Manager) PurgeBlacklisted(ctx context.Context) (int64, error) {
	p, err := m.persister()
	if err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-m.retention)
	removed, err := p.RemoveBlacklisted(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	m.metrics.RecordPurge(m.queue, removed)
	if removed > 0 {
		m.logger.Info("blacklisted content purged",
			logging.Int64("removed", removed),
			logging.String("cutoff", cutoff.UTC().Format(time.RFC3339)),
		)
	}
	return removed, nil
}

// Relaunch dispatches name again through the handler.
func (m *Manager) Relaunch(ctx context.Context, name *url.URL) error {
	return m.handler.Relaunch(ctx, name)
}
