// Package services defines shared utilities consumed by the queue handler,
// the daemon transports, and processors.
//
// Key responsibilities:
//   - Context helpers that stamp queue names, content names, and correlation
//     identifiers for logging and tracing.
//
// Use these helpers when wiring new entry points so log lines emitted deeper in
// the stack carry the same identifiers as the request that triggered them.
package services
