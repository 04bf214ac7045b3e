package queue_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nxqueue/internal/queue"
)

func newMemory(t *testing.T, name string) queue.Persister {
	t.Helper()
	p, err := queue.NewMemoryPersister(name, queue.StringContent)
	if err != nil {
		t.Fatalf("NewMemoryPersister failed: %v", err)
	}
	return p
}

func TestRegisterRejectsMissingParts(t *testing.T) {
	r := queue.NewRegistry()
	p := newMemory(t, "jobs")
	cases := map[string]error{
		"content type": r.Register("jobs", nil, p, queue.NoopProcessor{}),
		"persister":    r.Register("jobs", queue.StringContent, nil, queue.NoopProcessor{}),
		"processor":    r.Register("jobs", queue.StringContent, p, nil),
		"name":         r.Register("", queue.StringContent, p, queue.NoopProcessor{}),
	}
	for part, err := range cases {
		if !errors.Is(err, queue.ErrInvalidRegistration) {
			t.Fatalf("missing %s: expected ErrInvalidRegistration, got %v", part, err)
		}
	}
	if len(r.Queues()) != 0 {
		t.Fatalf("failed registrations must not be stored, got %v", r.Queues())
	}
}

func TestRegisterRejectsTypedNilParts(t *testing.T) {
	r := queue.NewRegistry()
	p := newMemory(t, "jobs")
	var memory *queue.MemoryPersister
	var document *queue.DocumentPersister
	var logProcessor *queue.LogProcessor
	var fn queue.ProcessorFunc

	cases := map[string]error{
		"memory persister":   r.Register("jobs", queue.StringContent, memory, queue.NoopProcessor{}),
		"document persister": r.Register("jobs", queue.StringContent, document, queue.NoopProcessor{}),
		"log processor":      r.Register("jobs", queue.StringContent, p, logProcessor),
		"processor func":     r.Register("jobs", queue.StringContent, p, fn),
	}
	for part, err := range cases {
		if !errors.Is(err, queue.ErrInvalidRegistration) {
			t.Fatalf("nil %s: expected ErrInvalidRegistration, got %v", part, err)
		}
	}
	if len(r.Queues()) != 0 {
		t.Fatalf("failed registrations must not be stored, got %v", r.Queues())
	}
	if _, err := r.Entry("jobs"); err == nil {
		t.Fatal("expected lookup of unregistered queue to fail")
	}
}

func TestRegistryLookupAndReplace(t *testing.T) {
	r := queue.NewRegistry()
	first := newMemory(t, "jobs")
	second := newMemory(t, "jobs")
	if err := r.Register("jobs", queue.StringContent, first, queue.NoopProcessor{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := r.Persister(queue.MustContentName("jobs", "item"))
	if err != nil || got != first {
		t.Fatalf("Persister = %v, %v", got, err)
	}
	if _, err := r.Processor(queue.MustQueueName("jobs")); err != nil {
		t.Fatalf("Processor lookup by queue URI failed: %v", err)
	}

	if err := r.Register("jobs", queue.StringContent, second, queue.NoopProcessor{}, queue.WithMaxExecutions(3)); err != nil {
		t.Fatalf("re-Register failed: %v", err)
	}
	entry, err := r.Entry("jobs")
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if entry.Persister != second || entry.MaxExecutions != 3 {
		t.Fatalf("entry not replaced as a whole: %#v", entry)
	}

	if _, err := r.Persister(queue.MustContentName("other", "x")); !errors.Is(err, queue.ErrQueueNotFound) {
		t.Fatalf("expected ErrQueueNotFound, got %v", err)
	}
	name, err := r.NewContentName("jobs", "x")
	if err != nil || name.String() != "nxqueue:jobs#x" {
		t.Fatalf("NewContentName = %v, %v", name, err)
	}
}

func TestRegistryConcurrentReadsDuringRegistration(t *testing.T) {
	r := queue.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				name := fmt.Sprintf("q%d-%d", i, j)
				if err := r.Register(name, queue.StringContent, newMemory(t, name), queue.NoopProcessor{}); err != nil {
					t.Errorf("Register failed: %v", err)
					return
				}
				if _, err := r.Entry(name); err != nil {
					t.Errorf("Entry(%s) failed right after registration: %v", name, err)
					return
				}
				_ = r.Queues()
			}
		}(i)
	}
	wg.Wait()
	if got := len(r.Queues()); got != 100 {
		t.Fatalf("registered queues = %d, want 100", got)
	}
}

func TestQueuesSorted(t *testing.T) {
	r := queue.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(name, queue.StringContent, newMemory(t, name), queue.NoopProcessor{}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	if diff := cmp.Diff([]string{"alpha", "mid", "zeta"}, r.Queues()); diff != "" {
		t.Fatalf("queues mismatch (-want +got):\n%s", diff)
	}
}
