// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. The
// server delegates to the daemon's queue service; the client wraps each
// remote method so CLI commands fail fast when the daemon is offline.
//
// Errors crossing the socket lose their type and arrive as rpc.ServerError
// strings. Outcomes a caller must branch on, such as a stored item whose
// processor failed, travel as response fields instead.
package ipc
