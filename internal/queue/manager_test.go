package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nxqueue/internal/queue"
)

func TestManagerOperations(t *testing.T) {
	f := newFixture(t, &fakeLocks{})
	ctx := context.Background()
	ownerA := mustOwner(t, "doc:a")
	ownerB := mustOwner(t, "doc:b")

	m := queue.NewManager("jobs", f.handler)
	one, _ := m.ContentName("one")
	two, _ := m.ContentName("two")
	three, _ := m.ContentName("three")
	for _, step := range []struct {
		owner string
		name  string
	}{{"a", "one"}, {"b", "two"}, {"a", "three"}} {
		name, _ := m.ContentName(step.name)
		if _, err := f.handler.NewContentIfUnknown(ctx, mustOwner(t, "doc:"+step.owner), name, step.name); err != nil {
			t.Fatalf("submit %s failed: %v", step.name, err)
		}
	}

	if ok, err := m.KnowsContent(ctx, two); err != nil || !ok {
		t.Fatalf("KnowsContent = %v, %v", ok, err)
	}
	owned, err := m.ListOwnedItems(ctx, ownerA)
	if err != nil {
		t.Fatalf("ListOwnedItems failed: %v", err)
	}
	if diff := cmp.Diff([]string{one.String(), three.String()}, itemNames(owned)); diff != "" {
		t.Fatalf("owned mismatch (-want +got):\n%s", diff)
	}

	if _, err := m.Blacklist(ctx, one); err != nil {
		t.Fatalf("Blacklist failed: %v", err)
	}
	if err := m.Relaunch(ctx, one); !errors.Is(err, queue.ErrBlacklisted) {
		t.Fatalf("expected ErrBlacklisted, got %v", err)
	}
	if err := m.Relaunch(ctx, three); err != nil {
		t.Fatalf("Relaunch failed: %v", err)
	}
	info, err := m.Info(ctx, three)
	if err != nil || info.ExecutionCount != 2 {
		t.Fatalf("Info after relaunch = %#v, %v", info, err)
	}

	updated, err := m.UpdateContent(ctx, two, "rewritten")
	if err != nil || updated.Content != "rewritten" {
		t.Fatalf("UpdateContent = %#v, %v", updated, err)
	}

	summary, err := m.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	want := queue.Summary{Queue: "jobs", ContentType: "string", Total: 3, Launched: 2, Blacklisted: 1}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	removed, err := m.ForgetOwner(ctx, ownerB)
	if err != nil || removed != 1 {
		t.Fatalf("ForgetOwner = %d, %v", removed, err)
	}
	if _, err := m.ForgetContent(ctx, three); err != nil {
		t.Fatalf("ForgetContent failed: %v", err)
	}
	items, err := m.ListHandledItems(ctx)
	if err != nil {
		t.Fatalf("ListHandledItems failed: %v", err)
	}
	if diff := cmp.Diff([]string{one.String()}, itemNames(items)); diff != "" {
		t.Fatalf("remaining mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerForUnknownQueue(t *testing.T) {
	f := newFixture(t, &fakeLocks{})
	m := queue.NewManager("ghost", f.handler)
	if _, err := m.ListHandledItems(context.Background()); !errors.Is(err, queue.ErrQueueNotFound) {
		t.Fatalf("expected ErrQueueNotFound, got %v", err)
	}
}
