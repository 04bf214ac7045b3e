package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"nxqueue/internal/queue"
)

// QueueService runs queue operations addressed by queue and item names and
// returns API DTOs.
type QueueService struct {
	handler *queue.Handler
	reaper  *queue.Reaper
	opts    []queue.ManagerOption
}

// NewQueueService constructs a QueueService around the handler. The reaper
// serves purges across all queues; opts configure the per-queue managers.
func NewQueueService(handler *queue.Handler, reaper *queue.Reaper, opts ...queue.ManagerOption) *QueueService {
	if handler == nil {
		return nil
	}
	return &QueueService{handler: handler, reaper: reaper, opts: opts}
}

func (s *QueueService) manager(queueName string) (*queue.Manager, *queue.Entry, error) {
	entry, err := s.handler.Registry().Entry(strings.TrimSpace(queueName))
	if err != nil {
		return nil, nil, err
	}
	return queue.NewManager(entry.Queue, s.handler, s.opts...), entry, nil
}

func (s *QueueService) contentName(queueName, item string) (*queue.Manager, *queue.Entry, *url.URL, error) {
	manager, entry, err := s.manager(queueName)
	if err != nil {
		return nil, nil, nil, err
	}
	name, err := manager.ContentName(strings.TrimSpace(item))
	if err != nil {
		return nil, nil, nil, err
	}
	return manager, entry, name, nil
}

// List summarizes every registered queue.
func (s *QueueService) List(ctx context.Context) ([]QueueSummary, error) {
	if s == nil {
		return nil, nil
	}
	managers := queue.Managers(s.handler, s.opts...)
	out := make([]QueueSummary, 0, len(managers))
	for _, manager := range managers {
		summary, err := manager.Summary(ctx)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", manager.Name(), err)
		}
		out = append(out, FromSummary(summary))
	}
	return out, nil
}

// Items lists the items of a queue, restricted to owner when it is set.
func (s *QueueService) Items(ctx context.Context, queueName, owner string) ([]QueueItem, error) {
	manager, entry, err := s.manager(queueName)
	if err != nil {
		return nil, err
	}
	var items []*queue.Item
	if strings.TrimSpace(owner) == "" {
		items, err = manager.ListHandledItems(ctx)
	} else {
		ownerURI, parseErr := queue.ParseOwner(owner)
		if parseErr != nil {
			return nil, parseErr
		}
		items, err = manager.ListOwnedItems(ctx, ownerURI)
	}
	if err != nil {
		return nil, err
	}
	return FromQueueItems(items, entry.ContentType.Name()), nil
}

// Describe fetches a single item.
func (s *QueueService) Describe(ctx context.Context, queueName, item string) (*QueueItem, error) {
	manager, entry, name, err := s.contentName(queueName, item)
	if err != nil {
		return nil, err
	}
	found, err := manager.Info(ctx, name)
	if err != nil {
		return nil, err
	}
	dto := FromQueueItem(found, entry.ContentType.Name())
	return &dto, nil
}

// Submit hands new content to the queue handler. With IfUnknown the
// submission is deduplicated under the content lock.
func (s *QueueService) Submit(ctx context.Context, queueName string, req SubmitRequest) (SubmitResult, error) {
	manager, entry, name, err := s.contentName(queueName, req.Item)
	if err != nil {
		return SubmitResult{}, err
	}
	owner, err := queue.ParseOwner(req.Owner)
	if err != nil {
		return SubmitResult{}, err
	}
	content, err := queue.ParseContent(entry.ContentType, req.Content)
	if err != nil {
		return SubmitResult{}, err
	}

	outcome := queue.OutcomeAccepted
	var submitErr error
	if req.IfUnknown {
		outcome, submitErr = s.handler.NewContentIfUnknown(ctx, owner, name, content)
	} else {
		submitErr = s.handler.NewContent(ctx, owner, name, content)
	}
	if outcome == "" {
		return SubmitResult{}, submitErr
	}
	if !req.IfUnknown && submitErr != nil && !isProcessingError(submitErr) {
		return SubmitResult{}, submitErr
	}

	result := SubmitResult{Outcome: string(outcome)}
	if outcome != queue.OutcomeContended {
		if stored, err := manager.Info(ctx, name); err == nil {
			dto := FromQueueItem(stored, entry.ContentType.Name())
			result.Item = &dto
		}
	}
	return result, submitErr
}

// isProcessingError reports whether err came from a processor run, after the
// content was stored.
func isProcessingError(err error) bool {
	var qerr *queue.Error
	return errors.As(err, &qerr) && qerr.Op == "process"
}

// Blacklist abandons an item.
func (s *QueueService) Blacklist(ctx context.Context, queueName, item string) (*QueueItem, error) {
	manager, entry, name, err := s.contentName(queueName, item)
	if err != nil {
		return nil, err
	}
	updated, err := manager.Blacklist(ctx, name)
	if err != nil {
		return nil, err
	}
	dto := FromQueueItem(updated, entry.ContentType.Name())
	return &dto, nil
}

// Remove deletes an item and returns its last state.
func (s *QueueService) Remove(ctx context.Context, queueName, item string) (*QueueItem, error) {
	manager, entry, name, err := s.contentName(queueName, item)
	if err != nil {
		return nil, err
	}
	removed, err := manager.ForgetContent(ctx, name)
	if err != nil {
		return nil, err
	}
	dto := FromQueueItem(removed, entry.ContentType.Name())
	return &dto, nil
}

// Update replaces the payload of an item.
func (s *QueueService) Update(ctx context.Context, queueName, item, content string) (*QueueItem, error) {
	manager, entry, name, err := s.contentName(queueName, item)
	if err != nil {
		return nil, err
	}
	payload, err := queue.ParseContent(entry.ContentType, content)
	if err != nil {
		return nil, err
	}
	updated, err := manager.UpdateContent(ctx, name, payload)
	if err != nil {
		return nil, err
	}
	dto := FromQueueItem(updated, entry.ContentType.Name())
	return &dto, nil
}

// ForgetOwner deletes the items of owner in one queue, or in every queue
// when queueName is empty.
func (s *QueueService) ForgetOwner(ctx context.Context, queueName, owner string) (int64, error) {
	ownerURI, err := queue.ParseOwner(owner)
	if err != nil {
		return 0, err
	}
	var managers []*queue.Manager
	if strings.TrimSpace(queueName) == "" {
		managers = queue.Managers(s.handler, s.opts...)
	} else {
		manager, _, err := s.manager(queueName)
		if err != nil {
			return 0, err
		}
		managers = []*queue.Manager{manager}
	}
	var total int64
	for _, manager := range managers {
		removed, err := manager.ForgetOwner(ctx, ownerURI)
		if err != nil {
			return total, err
		}
		total += removed
	}
	return total, nil
}

// Purge removes expired blacklisted items from one queue, or from every
// queue through the reaper when queueName is empty. Per-queue failures are
// reported in the result while the other queues are still purged.
func (s *QueueService) Purge(ctx context.Context, queueName string) (PurgeResult, error) {
	if strings.TrimSpace(queueName) != "" {
		manager, _, err := s.manager(queueName)
		if err != nil {
			return PurgeResult{}, err
		}
		removed, err := manager.PurgeBlacklisted(ctx)
		if err != nil {
			return PurgeResult{}, err
		}
		return PurgeResult{Removed: map[string]int64{manager.Name(): removed}}, nil
	}
	reaper := s.reaper
	if reaper == nil {
		reaper = queue.NewReaper(s.handler, nil, s.opts...)
	}
	removed, err := reaper.PurgeAll(ctx)
	result := PurgeResult{Removed: removed}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

// Relaunch dispatches an item again and returns its new state.
func (s *QueueService) Relaunch(ctx context.Context, queueName, item string) (*QueueItem, error) {
	manager, entry, name, err := s.contentName(queueName, item)
	if err != nil {
		return nil, err
	}
	runErr := manager.Relaunch(ctx, name)
	if runErr != nil && !isProcessingError(runErr) {
		return nil, runErr
	}
	updated, err := manager.Info(ctx, name)
	if err != nil {
		return nil, errors.Join(runErr, err)
	}
	dto := FromQueueItem(updated, entry.ContentType.Name())
	return &dto, runErr
}
