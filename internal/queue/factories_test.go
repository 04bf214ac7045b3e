package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nxqueue/internal/config"
	"nxqueue/internal/logging"
	"nxqueue/internal/queue"
	"nxqueue/internal/testsupport"
)

func TestBootstrapRegistersConfiguredQueues(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueues(
		config.Queue{Name: "jobs", ContentType: "string", Persister: "document", Processor: "log", MaxExecutions: 3},
		config.Queue{Name: "events", ContentType: "json", Persister: "memory", Processor: "noop"},
	))
	store := testsupport.MustOpenStore(t, cfg)
	registry := queue.NewRegistry()

	if err := queue.Bootstrap(context.Background(), registry, cfg.Queues, queue.DefaultFactories(store, logging.NewNop())); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if diff := cmp.Diff([]string{"events", "jobs"}, registry.Queues()); diff != "" {
		t.Fatalf("queues mismatch (-want +got):\n%s", diff)
	}
	jobs, err := registry.Entry("jobs")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if _, ok := jobs.Persister.(*queue.DocumentPersister); !ok || jobs.MaxExecutions != 3 {
		t.Fatalf("unexpected jobs entry: %#v", jobs)
	}
	events, err := registry.Entry("events")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if events.ContentType != queue.JSONContent {
		t.Fatalf("unexpected events content type %v", events.ContentType.Name())
	}
}

func TestBootstrapRejectsUnknownKinds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	factories := queue.DefaultFactories(store, nil)

	cases := []struct {
		name string
		desc config.Queue
		want error
	}{
		{"persister", config.Queue{Name: "q", ContentType: "string", Persister: "tape", Processor: "log"}, queue.ErrInvalidRegistration},
		{"processor", config.Queue{Name: "q", ContentType: "string", Persister: "memory", Processor: "shell"}, queue.ErrInvalidRegistration},
		{"content type", config.Queue{Name: "q", ContentType: "xml", Persister: "memory", Processor: "log"}, queue.ErrContentType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := queue.Bootstrap(context.Background(), queue.NewRegistry(), []config.Queue{tc.desc}, factories)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
