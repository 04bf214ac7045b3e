// Package admin tracks the administrative status of the local node.
//
// An inactive node refuses new queue submissions while keeping every other
// operation available, which lets operators drain a node before maintenance.
package admin

import "sync/atomic"

// Status is a concurrency-safe active/passive flag.
type Status struct {
	active atomic.Bool
}

// New returns a status initialised to active.
func New(active bool) *Status {
	s := &Status{}
	s.active.Store(active)
	return s
}

// IsActive reports whether the node accepts submissions.
func (s *Status) IsActive() bool {
	if s == nil {
		return false
	}
	return s.active.Load()
}

// SetActive updates the flag and reports whether it changed.
// A nil Status stays passive and never reports a change.
func (s *Status) SetActive(active bool) bool {
	if s == nil {
		return false
	}
	return s.active.Swap(active) != active
}

// Label renders the status for display.
func (s *Status) Label() string {
	if s.IsActive() {
		return "active"
	}
	return "passive"
}
