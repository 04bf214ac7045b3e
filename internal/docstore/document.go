package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	// RootPath is the path of the folder every document descends from.
	RootPath = "/"
	// TypeFolder marks documents that only hold children.
	TypeFolder = "Folder"
)

// timeLayout is fixed width so stored timestamps order correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Document is a node in the repository tree.
type Document struct {
	ID         string
	Path       string
	ParentPath string
	Name       string
	Type       string
	Properties map[string]any
	Blob       []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDocument returns a document named name beneath parent.
func NewDocument(parent, name, docType string) *Document {
	return &Document{
		Path:       Join(parent, name),
		ParentPath: parent,
		Name:       name,
		Type:       docType,
		Properties: map[string]any{},
	}
}

// Join builds a child path from a parent path and a single path segment.
func Join(parent, name string) string {
	if parent == "" {
		parent = RootPath
	}
	return path.Join(parent, name)
}

// FormatTime renders t in the store's sortable UTC layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime parses a timestamp written by FormatTime.
func ParseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

// Set stores a property value. A nil value removes the property.
func (d *Document) Set(key string, value any) {
	if d.Properties == nil {
		d.Properties = map[string]any{}
	}
	if value == nil {
		delete(d.Properties, key)
		return
	}
	d.Properties[key] = value
}

// SetTime stores a timestamp property. A nil time removes it.
func (d *Document) SetTime(key string, value *time.Time) {
	if value == nil {
		d.Set(key, nil)
		return
	}
	d.Set(key, FormatTime(*value))
}

// String returns a string property or "".
func (d *Document) String(key string) string {
	switch v := d.Properties[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns an integer property or 0.
func (d *Document) Int64(key string) int64 {
	switch v := d.Properties[key].(type) {
	case json.Number:
		n, _ := v.Int64()
		return n
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Time returns a timestamp property, or nil when unset or unparsable.
func (d *Document) Time(key string) *time.Time {
	raw := d.String(key)
	if raw == "" {
		return nil
	}
	t, err := ParseTime(raw)
	if err != nil {
		return nil
	}
	return &t
}

func encodeProperties(props map[string]any) (string, error) {
	if len(props) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("encode properties: %w", err)
	}
	return string(data), nil
}

func decodeProperties(raw string) (map[string]any, error) {
	props := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return props, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return props, nil
}
