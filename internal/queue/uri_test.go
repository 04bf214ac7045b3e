package queue_test

import (
	"errors"
	"testing"

	"nxqueue/internal/queue"
)

func TestContentNameRoundTrip(t *testing.T) {
	name, err := queue.NewContentName("jobs", "item 1/a")
	if err != nil {
		t.Fatalf("NewContentName failed: %v", err)
	}
	parsed, err := queue.ParseName(name.String())
	if err != nil {
		t.Fatalf("ParseName(%q) failed: %v", name.String(), err)
	}
	if parsed.String() != name.String() {
		t.Fatalf("round trip mismatch: %q != %q", parsed.String(), name.String())
	}
	q, err := queue.QueueNameOf(parsed)
	if err != nil || q != "jobs" {
		t.Fatalf("QueueNameOf = %q, %v", q, err)
	}
	item, err := queue.ItemOf(parsed)
	if err != nil || item != "item 1/a" {
		t.Fatalf("ItemOf = %q, %v", item, err)
	}
}

func TestQueueNameFormat(t *testing.T) {
	if got := queue.MustQueueName("jobs").String(); got != "nxqueue:jobs" {
		t.Fatalf("unexpected queue URI %q", got)
	}
	if got := queue.MustContentName("jobs", "item1").String(); got != "nxqueue:jobs#item1" {
		t.Fatalf("unexpected content URI %q", got)
	}
}

func TestMalformedNames(t *testing.T) {
	cases := []struct {
		name string
		fn   func() error
	}{
		{"empty queue", func() error { _, err := queue.NewQueueName(""); return err }},
		{"bad queue chars", func() error { _, err := queue.NewQueueName("a b"); return err }},
		{"empty item", func() error { _, err := queue.NewContentName("jobs", " "); return err }},
		{"wrong scheme", func() error { _, err := queue.ParseName("http://example.com#x"); return err }},
		{"relative owner", func() error { _, err := queue.ParseOwner("just-a-name"); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !errors.Is(err, queue.ErrInvalidName) {
				t.Fatalf("expected ErrInvalidName, got %v", err)
			}
		})
	}
}

func TestMustContentNamePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for malformed name")
		}
	}()
	queue.MustContentName("bad queue", "x")
}
