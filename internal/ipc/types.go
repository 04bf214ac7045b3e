package ipc

import "nxqueue/internal/api"

// QueueItem mirrors the HTTP API queue DTO for IPC callers.
type QueueItem = api.QueueItem

// QueueSummary mirrors the HTTP API queue summary.
type QueueSummary = api.QueueSummary

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon status information.
type StatusResponse struct {
	Status     api.DaemonStatus `json:"status"`
	SocketPath string           `json:"socket_path"`
	APIAddr    string           `json:"api_addr,omitempty"`
}

// QueueListRequest lists the registered queues.
type QueueListRequest struct{}

// QueueListResponse contains queue summaries.
type QueueListResponse struct {
	Queues []QueueSummary `json:"queues"`
}

// QueueShowRequest lists a queue's items, one item, or the items of an owner.
type QueueShowRequest struct {
	Queue string `json:"queue"`
	Item  string `json:"item,omitempty"`
	Owner string `json:"owner,omitempty"`
}

// QueueShowResponse contains queue items.
type QueueShowResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueSubmitRequest submits new content.
type QueueSubmitRequest struct {
	Queue     string `json:"queue"`
	Owner     string `json:"owner"`
	Item      string `json:"item"`
	Content   string `json:"content"`
	IfUnknown bool   `json:"if_unknown"`
}

// QueueSubmitResponse reports the submission outcome. ProcessingError is set
// when the content was stored but its processor failed.
type QueueSubmitResponse struct {
	Outcome         string     `json:"outcome"`
	Item            *QueueItem `json:"item,omitempty"`
	ProcessingError string     `json:"processing_error,omitempty"`
}

// QueueItemRequest addresses one item.
type QueueItemRequest struct {
	Queue string `json:"queue"`
	Item  string `json:"item"`
}

// QueueUpdateRequest replaces the payload of one item.
type QueueUpdateRequest struct {
	Queue   string `json:"queue"`
	Item    string `json:"item"`
	Content string `json:"content"`
}

// QueueItemResponse contains the item after an action.
type QueueItemResponse struct {
	Item            QueueItem `json:"item"`
	ProcessingError string    `json:"processing_error,omitempty"`
}

// QueueForgetOwnerRequest removes the items of an owner. An empty queue
// addresses every queue.
type QueueForgetOwnerRequest struct {
	Queue string `json:"queue,omitempty"`
	Owner string `json:"owner"`
}

// QueueForgetOwnerResponse reports number of removed items.
type QueueForgetOwnerResponse struct {
	Removed int64 `json:"removed"`
}

// QueuePurgeRequest purges blacklisted items. An empty queue addresses
// every queue.
type QueuePurgeRequest struct {
	Queue string `json:"queue,omitempty"`
}

// QueuePurgeResponse reports removed items per queue.
type QueuePurgeResponse struct {
	Removed map[string]int64 `json:"removed"`
	Error   string           `json:"error,omitempty"`
}

// AdminSetActiveRequest switches the administrative status.
type AdminSetActiveRequest struct {
	Active bool `json:"active"`
}

// AdminSetActiveResponse reports the resulting status.
type AdminSetActiveResponse struct {
	Active  bool `json:"active"`
	Changed bool `json:"changed"`
}
