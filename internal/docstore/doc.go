// Package docstore implements a small hierarchical document repository on
// SQLite.
//
// Documents live at slash-separated paths beneath a root folder. Each carries
// a type, a JSON property bag and an optional blob. All reads and writes run
// inside Store.Do, which opens an immediate transaction and retries it when
// SQLite reports the database busy, so callers get one atomic unit of work per
// invocation.
package docstore
