package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"nxqueue/internal/admin"
	"nxqueue/internal/api"
	"nxqueue/internal/config"
	"nxqueue/internal/docstore"
	"nxqueue/internal/lock"
	"nxqueue/internal/logging"
	"nxqueue/internal/metrics"
	"nxqueue/internal/queue"
)

// Daemon hosts the queues and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *docstore.Store
	locks   lock.Coordinator
	status  *admin.Status
	metrics *metrics.Metrics

	registry *queue.Registry
	handler  *queue.Handler
	reaper   *queue.Reaper
	queues   *api.QueueService

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	api     *apiServer
}

// Option customizes a Daemon.
type Option func(*options)

type options struct {
	factories *queue.Factories
	metrics   *metrics.Metrics
}

// WithFactories overrides the persister and processor factories used to
// build the configured queues.
func WithFactories(f queue.Factories) Option {
	return func(o *options) { o.factories = &f }
}

// WithMetrics supplies the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New constructs a daemon and registers the configured queues.
func New(ctx context.Context, cfg *config.Config, store *docstore.Store, locks lock.Coordinator, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || locks == nil {
		return nil, errors.New("daemon requires config, document store, and lock coordinator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.New()
	}
	factories := queue.DefaultFactories(store, logger)
	if o.factories != nil {
		factories = *o.factories
	}

	registry := queue.NewRegistry()
	if err := queue.Bootstrap(ctx, registry, cfg.Queues, factories); err != nil {
		return nil, fmt.Errorf("register queues: %w", err)
	}

	status := admin.New(cfg.Admin.Active)
	handler := queue.NewHandler(registry, locks, status,
		queue.WithLockWait(cfg.LockWait()),
		queue.WithLogger(logger),
		queue.WithMetrics(o.metrics),
	)
	managerOpts := []queue.ManagerOption{
		queue.WithRetention(cfg.ReaperRetention()),
		queue.WithManagerLogger(logger),
		queue.WithManagerMetrics(o.metrics),
	}
	reaper := queue.NewReaper(handler, logger, managerOpts...)

	lockPath := cfg.DaemonLockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		locks:    locks,
		status:   status,
		metrics:  o.metrics,
		registry: registry,
		handler:  handler,
		reaper:   reaper,
		queues:   api.NewQueueService(handler, reaper, managerOpts...),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, schedules the reaper and starts the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another nxqueue daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if d.cfg.Reaper.Enabled {
		if err := d.reaper.Start(runCtx, d.cfg.Reaper.Schedule); err != nil {
			cancel()
			_ = d.lock.Unlock()
			return fmt.Errorf("start reaper: %w", err)
		}
	}

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.reaper.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	group, groupCtx := errgroup.WithContext(runCtx)
	if srv != nil {
		if err := srv.listen(); err != nil {
			d.reaper.Stop()
			cancel()
			_ = d.lock.Unlock()
			return err
		}
		group.Go(func() error { return srv.serve(groupCtx) })
	}

	d.cancel = cancel
	d.group = group
	d.api = srv
	d.running.Store(true)
	d.logger.Info("nxqueue daemon started",
		logging.String("lock", d.lockPath),
		logging.String("status", d.status.Label()),
		logging.Int("queues", len(d.registry.Queues())),
	)
	return nil
}

// Stop stops background services and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.reaper.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.group != nil {
		if err := d.group.Wait(); err != nil {
			logging.WarnWithContext(d.logger, "api server stopped with error", "api_server_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.api_bind"),
			)
		}
		d.group = nil
	}
	d.api = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("nxqueue daemon stopped")
}

// Close stops the daemon and releases the lock coordinator and store.
func (d *Daemon) Close() error {
	d.Stop()
	return errors.Join(d.locks.Close(), d.store.Close())
}

// Queues returns the queue service backing the IPC and HTTP endpoints.
func (d *Daemon) Queues() *api.QueueService { return d.queues }

// Handler returns the queue handler.
func (d *Daemon) Handler() *queue.Handler { return d.handler }

// Metrics returns the daemon's metrics collectors.
func (d *Daemon) Metrics() *metrics.Metrics { return d.metrics }

// IsActive reports the administrative status.
func (d *Daemon) IsActive() bool { return d.status.IsActive() }

// SetActive switches the administrative status and reports whether it changed.
func (d *Daemon) SetActive(active bool) bool {
	changed := d.status.SetActive(active)
	if changed {
		d.logger.Info("administrative status changed", logging.String("status", d.status.Label()))
	}
	return changed
}

// APIAddr returns the bound HTTP API address, or "" when the API is off.
func (d *Daemon) APIAddr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.api == nil || d.api.listener == nil {
		return ""
	}
	return d.api.listener.Addr().String()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:           d.running.Load(),
		Active:            d.status.IsActive(),
		PID:               os.Getpid(),
		DocumentStorePath: d.store.Path(),
		LockFilePath:      d.lockPath,
		LockBackend:       d.cfg.Locking.Backend,
	}
	if d.cfg.Reaper.Enabled {
		status.ReaperSchedule = d.cfg.Reaper.Schedule
	}
	queues, err := d.queues.List(ctx)
	if err != nil {
		d.logger.Warn("queue summary failed", logging.Error(err))
	}
	status.Queues = queues
	health, err := d.store.CheckHealth(ctx)
	if err != nil && health.Error == "" {
		health.Error = err.Error()
	}
	status.Database = api.FromDatabaseHealth(health)
	return status
}
