package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"nxqueue/internal/lock"
	"nxqueue/internal/logging"
	"nxqueue/internal/metrics"
	"nxqueue/internal/services"
)

// DefaultLockWait bounds lock acquisition when no wait is configured.
const DefaultLockWait = 2 * time.Second

// Status reports whether the node accepts queue mutations.
type Status interface {
	IsActive() bool
}

// Outcome describes what NewContentIfUnknown did with a submission.
type Outcome string

const (
	// OutcomeAccepted means the content was stored and dispatched.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeKnown means the content was already stored.
	OutcomeKnown Outcome = "known"
	// OutcomeContended means another submitter held the content lock.
	OutcomeContended Outcome = "contended"
)

// Handler accepts new content and dispatches it to processors.
type Handler struct {
	registry *Registry
	locks    lock.Coordinator
	status   Status
	delay    time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithLockWait sets how long NewContentIfUnknown waits for a held lock.
func WithLockWait(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.delay = d
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records submissions and executions in m.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler wires a handler to its collaborators.
func NewHandler(registry *Registry, locks lock.Coordinator, status Status, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry: registry,
		locks:    locks,
		status:   status,
		delay:    DefaultLockWait,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.NewComponentLogger(h.logger, "queue-handler")
	return h
}

// Registry returns the registry the handler dispatches through.
func (h *Handler) Registry() *Registry { return h.registry }

func (h *Handler) checkActive(op string, name *url.URL) error {
	if h.status != nil && h.status.IsActive() {
		return nil
	}
	queue, _ := QueueNameOf(name)
	h.metrics.RecordSubmission(queue, metrics.OutcomeRefused)
	return &Error{Op: op, Queue: queue, Name: nameString(name), Err: ErrServerInactive}
}

// NewContent stores content and dispatches it immediately. It does not
// deduplicate: an existing item with the same name fails with
// ErrDuplicateContent.
func (h *Handler) NewContent(ctx context.Context, owner, name *url.URL, content any) error {
	const op = "new content"
	if err := h.checkActive(op, name); err != nil {
		return err
	}
	entry, err := h.registry.Lookup(name)
	if err != nil {
		return &Error{Op: op, Name: nameString(name), Err: err}
	}
	if _, err := entry.Persister.AddContent(ctx, owner, name, content); err != nil {
		h.metrics.RecordSubmission(entry.Queue, metrics.OutcomeFailed)
		return err
	}
	h.metrics.RecordSubmission(entry.Queue, metrics.OutcomeAccepted)
	return h.launch(ctx, entry, name)
}

// NewContentIfUnknown stores and dispatches content unless it is already
// known. Concurrent submissions of the same name collapse to one: the
// content lock is taken for (owner, name), existence is verified and the
// item persisted under it, and the lock is always released before dispatch.
// A submission that cannot take the lock within the configured wait is
// treated as a duplicate.
func (h *Handler) NewContentIfUnknown(ctx context.Context, owner, name *url.URL, content any) (Outcome, error) {
	const op = "new content if unknown"
	if err := h.checkActive(op, name); err != nil {
		return "", err
	}
	entry, err := h.registry.Lookup(name)
	if err != nil {
		return "", &Error{Op: op, Name: nameString(name), Err: err}
	}
	if owner == nil {
		return "", &Error{Op: op, Queue: entry.Queue, Name: name.String(), Err: fmt.Errorf("%w: owner is required", ErrInvalidName)}
	}

	logger := logging.WithContext(services.WithContent(services.WithQueue(ctx, entry.Queue), name.String()), h.logger)

	// acquire
	started := time.Now()
	err = h.locks.Lock(ctx, owner.String(), name.String(), "queue submission for "+entry.Queue, h.delay)
	h.metrics.ObserveLockWait(entry.Queue, time.Since(started))
	if errors.Is(err, lock.ErrAlreadyLocked) {
		logger.Debug("content locked by another submitter",
			logging.Owner(owner),
			logging.Duration("wait", h.delay),
		)
		h.metrics.RecordSubmission(entry.Queue, metrics.OutcomeContended)
		return OutcomeContended, nil
	}
	if err != nil {
		h.metrics.RecordSubmission(entry.Queue, metrics.OutcomeFailed)
		return "", &Error{Op: op, Queue: entry.Queue, Name: name.String(), Err: fmt.Errorf("%w: %w", ErrLockFailure, err)}
	}

	// verify and commit, then release
	known, err := h.storeIfAbsent(ctx, logger, entry, owner, name, content)
	if err != nil {
		h.metrics.RecordSubmission(entry.Queue, metrics.OutcomeFailed)
		return "", err
	}
	if known {
		logger.Debug("content already known", logging.Owner(owner))
		h.metrics.RecordSubmission(entry.Queue, metrics.OutcomeKnown)
		return OutcomeKnown, nil
	}
	h.metrics.RecordSubmission(entry.Queue, metrics.OutcomeAccepted)

	// dispatch
	if err := h.launch(ctx, entry, name); err != nil {
		return OutcomeAccepted, err
	}
	return OutcomeAccepted, nil
}

// storeIfAbsent runs with the content lock held and always releases it.
func (h *Handler) storeIfAbsent(ctx context.Context, logger *slog.Logger, entry *Entry, owner, name *url.URL, content any) (known bool, err error) {
	defer func() {
		if releaseErr := h.release(ctx, logger, entry, owner, name); releaseErr != nil {
			err = errors.Join(err, releaseErr)
		}
	}()

	known, err = entry.Persister.HasContent(ctx, name)
	if err != nil || known {
		return known, err
	}
	_, err = entry.Persister.AddContent(ctx, owner, name, content)
	return false, err
}

func (h *Handler) release(ctx context.Context, logger *slog.Logger, entry *Entry, owner, name *url.URL) error {
	err := h.locks.Unlock(context.WithoutCancel(ctx), owner.String(), name.String())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lock.ErrNotOwner), errors.Is(err, lock.ErrLockExpired):
		logging.WarnWithContext(logger, "content lock lost before release", "lock_lost",
			logging.Owner(owner),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "increase locking.lease_seconds if submissions are slow"),
			logging.String(logging.FieldImpact, "another submitter may be handling the same content"),
		)
		return nil
	default:
		return &Error{Op: "release lock", Queue: entry.Queue, Name: name.String(), Err: fmt.Errorf("%w: %w", ErrLockFailure, err)}
	}
}

// Relaunch dispatches an existing item again.
func (h *Handler) Relaunch(ctx context.Context, name *url.URL) error {
	const op = "relaunch"
	if err := h.checkActive(op, name); err != nil {
		return err
	}
	entry, err := h.registry.Lookup(name)
	if err != nil {
		return &Error{Op: op, Name: nameString(name), Err: err}
	}
	item, err := entry.Persister.GetInfo(ctx, name)
	if err != nil {
		return err
	}
	if item.IsBlacklisted() {
		return &Error{Op: op, Queue: entry.Queue, Name: name.String(), Err: ErrBlacklisted}
	}
	return h.launch(ctx, entry, name)
}

// launch marks the item launched and runs the processor synchronously.
// A failed run that reaches the queue's execution limit blacklists the item.
func (h *Handler) launch(ctx context.Context, entry *Entry, name *url.URL) error {
	item, err := entry.Persister.SetLaunched(ctx, name)
	if err != nil {
		return err
	}

	ctx = services.WithContent(services.WithQueue(ctx, entry.Queue), name.String())
	logger := logging.WithContext(ctx, h.logger)

	procErr := entry.Processor.Process(ctx, item)
	if procErr == nil {
		h.metrics.RecordExecution(entry.Queue, metrics.ResultSuccess)
		logger.Debug("content dispatched", logging.Int64("execution_count", item.ExecutionCount))
		return nil
	}

	if entry.MaxExecutions > 0 && item.ExecutionCount >= int64(entry.MaxExecutions) {
		h.metrics.RecordExecution(entry.Queue, metrics.ResultBlacklisted)
		if _, err := entry.Persister.SetBlacklisted(ctx, name); err != nil {
			return errors.Join(
				&Error{Op: "process", Queue: entry.Queue, Name: name.String(), Err: procErr},
				err,
			)
		}
		logging.WarnWithContext(logger, "content blacklisted after repeated failures", "content_blacklisted",
			logging.Int64("execution_count", item.ExecutionCount),
			logging.Int("max_executions", entry.MaxExecutions),
			logging.Error(procErr),
			logging.String(logging.FieldErrorHint, "inspect the item with 'nxqueue queue show' and remove or purge it"),
			logging.String(logging.FieldImpact, "content will not be dispatched again"),
		)
	} else {
		h.metrics.RecordExecution(entry.Queue, metrics.ResultError)
		logging.WarnWithContext(logger, "content processing failed", "process_failed",
			logging.Int64("execution_count", item.ExecutionCount),
			logging.Error(procErr),
			logging.String(logging.FieldErrorHint, "relaunch the item once the cause is fixed"),
		)
	}
	return &Error{Op: "process", Queue: entry.Queue, Name: name.String(), Err: procErr}
}

func nameString(name *url.URL) string {
	if name == nil {
		return ""
	}
	return name.String()
}
