package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueNotFound indicates no queue is registered under the name.
	ErrQueueNotFound = errors.New("queue not found")
	// ErrNoSuchContent indicates the item is not stored in its queue.
	ErrNoSuchContent = errors.New("no such content")
	// ErrDuplicateContent indicates an item with the same name already exists.
	ErrDuplicateContent = errors.New("content already exists")
	// ErrServerInactive indicates the node is administratively passive.
	ErrServerInactive = errors.New("server is not active")
	// ErrInvalidRegistration indicates a registration with missing parts.
	ErrInvalidRegistration = errors.New("invalid queue registration")
	// ErrInvalidName indicates a malformed queue, content or owner URI.
	ErrInvalidName = errors.New("invalid queue name")
	// ErrContentType indicates a payload that does not match the queue's content type.
	ErrContentType = errors.New("content type mismatch")
	// ErrLockFailure indicates the lock coordinator failed for a reason other than contention.
	ErrLockFailure = errors.New("lock coordinator failure")
	// ErrBlacklisted indicates an operation that requires a live item hit a blacklisted one.
	ErrBlacklisted = errors.New("content is blacklisted")
)

// Error records a failed queue operation.
type Error struct {
	Op    string
	Queue string
	Name  string
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Name != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
	case e.Queue != "":
		return fmt.Sprintf("%s queue %s: %v", e.Op, e.Queue, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }
