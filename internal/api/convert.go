package api

import (
	"encoding/json"
	"fmt"
	"time"

	"nxqueue/internal/docstore"
	"nxqueue/internal/queue"
)

// FromQueueItem converts a queue item to its API representation.
func FromQueueItem(item *queue.Item, contentType string) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		Queue:          item.Queue(),
		ContentType:    contentType,
		Content:        renderContent(item.Content),
		State:          stateOf(item),
		ExecutionCount: item.ExecutionCount,
		ExecuteTime:    formatTime(item.ExecuteTime),
		BlacklistTime:  formatTime(item.BlacklistTime),
	}
	if item.Name != nil {
		dto.Name = item.Name.String()
		dto.Item = item.Name.Fragment
	}
	if item.Owner != nil {
		dto.Owner = item.Owner.String()
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromQueueItems converts a slice of queue items.
func FromQueueItems(items []*queue.Item, contentType string) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, FromQueueItem(item, contentType))
	}
	return out
}

// FromSummary converts a queue summary.
func FromSummary(s queue.Summary) QueueSummary {
	return QueueSummary{
		Queue:       s.Queue,
		ContentType: s.ContentType,
		Total:       s.Total,
		Pending:     s.Pending,
		Launched:    s.Launched,
		Blacklisted: s.Blacklisted,
	}
}

// FromDatabaseHealth converts document store diagnostics.
func FromDatabaseHealth(h docstore.DatabaseHealth) DatabaseHealth {
	return DatabaseHealth{
		DBPath:           h.DBPath,
		DatabaseExists:   h.DatabaseExists,
		DatabaseReadable: h.DatabaseReadable,
		SchemaVersion:    h.SchemaVersion,
		Documents:        h.Documents,
		IntegrityCheck:   h.IntegrityCheck,
		Error:            h.Error,
	}
}

func stateOf(item *queue.Item) string {
	switch {
	case item.IsBlacklisted():
		return StateBlacklisted
	case item.IsLaunched():
		return StateLaunched
	default:
		return StatePending
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func renderContent(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case json.RawMessage:
		return string(v)
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprint(v)
	}
}
