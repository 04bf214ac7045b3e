// Package queue implements document-backed at-most-once work queues.
//
// A Registry binds each queue name to a content type, a Persister that owns
// the stored items and a Processor that executes them. The Handler is the
// only entry point for new work: NewContent enqueues unconditionally while
// NewContentIfUnknown collapses concurrent submissions of the same content
// through the advisory lock coordinator before persisting. Managers expose
// per-queue maintenance and the Reaper periodically purges blacklisted items.
//
// Content and queue names are URIs of the form nxqueue:<queue>#<item>.
// Every Persister operation is one storage transaction; atomicity of the
// check-then-insert sequence comes from the lock coordinator alone, so all
// producers must go through the Handler.
package queue
