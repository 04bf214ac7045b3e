package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"nxqueue/internal/logging"
)

// ReaperEvent is the scheduling event that triggers a purge.
const ReaperEvent = "queue-reaper-schedule"

// Reaper purges blacklisted items from every registered queue.
type Reaper struct {
	handler *Handler
	opts    []ManagerOption
	logger  *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReaper builds a reaper; opts are applied to each queue manager.
func NewReaper(handler *Handler, logger *slog.Logger, opts ...ManagerOption) *Reaper {
	return &Reaper{
		handler: handler,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "queue-reaper"),
	}
}

// HandleEvent purges on ReaperEvent and ignores other events.
func (r *Reaper) HandleEvent(ctx context.Context, event string) error {
	if event != ReaperEvent {
		return nil
	}
	_, err := r.PurgeAll(ctx)
	return err
}

// PurgeAll asks every queue manager to purge. A failing queue does not stop
// the others; failures are joined into the returned error.
func (r *Reaper) PurgeAll(ctx context.Context) (map[string]int64, error) {
	removed := make(map[string]int64)
	var errs []error
	for _, manager := range Managers(r.handler, r.opts...) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := manager.PurgeBlacklisted(ctx)
		if err != nil {
			logging.ErrorWithContext(r.logger, "purge failed", "purge_failed",
				logging.Queue(manager.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the document store with 'nxqueue status'"),
			)
			errs = append(errs, fmt.Errorf("purge %s: %w", manager.Name(), err))
			continue
		}
		removed[manager.Name()] = n
	}
	return removed, errors.Join(errs...)
}

// Start schedules ReaperEvent with a cron spec such as "@every 1h".
func (r *Reaper) Start(ctx context.Context, schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("reaper already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := r.HandleEvent(ctx, ReaperEvent); err != nil {
			r.logger.Debug("reaper run finished with errors", logging.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule reaper %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("reaper scheduled", logging.String("schedule", schedule))
	return nil
}

// Stop cancels the schedule and waits for a running purge to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}
