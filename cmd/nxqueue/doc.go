// Package main hosts the nxqueue CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the daemon: status, queue inspection and maintenance, content
// submission, and administrative status changes. Configuration scaffolding
// runs locally. Socket discovery follows the loaded configuration unless
// --socket overrides it.
//
// Add new functionality to the internal packages first, then surface it
// through dedicated commands or flags here.
package main
