// Package daemon coordinates the long-running nxqueue process.
//
// It wires configuration, the document store, the lock coordinator, the
// queue registry, handler and reaper, administrative status and metrics into
// a single lifecycle with flock-based locking to prevent multiple instances.
// The daemon also serves the HTTP API (chi router, optional bearer token,
// per-client rate limiting) next to the JSON-RPC socket owned by package ipc.
//
// Keep orchestration logic here: queue semantics live in package queue while
// the daemon focuses on startup, shutdown and exposing the queues.
package daemon
