// Package api defines wire-format types and the queue service shared by the
// IPC and HTTP layers. It translates queue models into transport-friendly DTOs
// so the CLI and HTTP clients never depend on internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue item with its lifecycle
// state, rendered content and formatted timestamps.
//
// QueueSummary: per-queue item counts by state.
//
// DaemonStatus: daemon runtime information including the administrative
// status and document store health.
//
// QueueService: resolves queue names through the handler's registry and runs
// submissions, listings and administrative actions, returning DTOs.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. URIs travel as strings in their
// "nxqueue:<queue>#<item>" form. Timestamps use RFC3339 with milliseconds.
// Byte payloads are rendered as text; JSON payloads are passed through.
package api
