package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Lifecycle states reported for queue items.
const (
	StatePending     = "pending"
	StateLaunched    = "launched"
	StateBlacklisted = "blacklisted"
)

// QueueItem describes a queue item in a transport-friendly format.
type QueueItem struct {
	Queue          string `json:"queue"`
	Name           string `json:"name"`
	Item           string `json:"item"`
	Owner          string `json:"owner"`
	ContentType    string `json:"contentType,omitempty"`
	Content        string `json:"content"`
	State          string `json:"state"`
	ExecutionCount int64  `json:"executionCount"`
	ExecuteTime    string `json:"executeTime,omitempty"`
	BlacklistTime  string `json:"blacklistTime,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

// QueueSummary counts the items of one queue by state.
type QueueSummary struct {
	Queue       string `json:"queue"`
	ContentType string `json:"contentType"`
	Total       int    `json:"total"`
	Pending     int    `json:"pending"`
	Launched    int    `json:"launched"`
	Blacklisted int    `json:"blacklisted"`
}

// DatabaseHealth mirrors the document store diagnostics.
type DatabaseHealth struct {
	DBPath           string `json:"dbPath"`
	DatabaseExists   bool   `json:"databaseExists"`
	DatabaseReadable bool   `json:"databaseReadable"`
	SchemaVersion    int    `json:"schemaVersion"`
	Documents        int64  `json:"documents"`
	IntegrityCheck   bool   `json:"integrityCheck"`
	Error            string `json:"error,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running           bool           `json:"running"`
	Active            bool           `json:"active"`
	PID               int            `json:"pid"`
	DocumentStorePath string         `json:"documentStorePath"`
	LockFilePath      string         `json:"lockFilePath"`
	LockBackend       string         `json:"lockBackend"`
	ReaperSchedule    string         `json:"reaperSchedule,omitempty"`
	Queues            []QueueSummary `json:"queues"`
	Database          DatabaseHealth `json:"database"`
}

// QueueListResponse wraps the queue summaries.
type QueueListResponse struct {
	Queues []QueueSummary `json:"queues"`
}

// QueueItemsResponse wraps a collection of queue items.
type QueueItemsResponse struct {
	Items []QueueItem `json:"items"`
}

// SubmitRequest carries new content for a queue.
type SubmitRequest struct {
	Owner     string `json:"owner"`
	Item      string `json:"item"`
	Content   string `json:"content"`
	IfUnknown bool   `json:"ifUnknown"`
}

// SubmitResult reports what happened to a submission.
type SubmitResult struct {
	Outcome string     `json:"outcome"`
	Item    *QueueItem `json:"item,omitempty"`
}

// PurgeResult reports how many blacklisted items each queue dropped.
type PurgeResult struct {
	Removed map[string]int64 `json:"removed"`
	Error   string           `json:"error,omitempty"`
}

// ErrorResponse is the body of failed HTTP requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
