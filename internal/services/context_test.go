package services_test

import (
	"context"
	"testing"

	"nxqueue/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQueue(ctx, "jobs")
	ctx = services.WithContent(ctx, "nxqueue:jobs#item1")
	ctx = services.WithRequestID(ctx, "req-123")

	if queue, ok := services.QueueFromContext(ctx); !ok || queue != "jobs" {
		t.Fatalf("unexpected queue: %v %v", queue, ok)
	}
	if name, ok := services.ContentFromContext(ctx); !ok || name != "nxqueue:jobs#item1" {
		t.Fatalf("unexpected content: %v %v", name, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQueue(ctx, "")
	ctx = services.WithContent(ctx, "")
	if _, ok := services.QueueFromContext(ctx); ok {
		t.Fatal("expected no queue value")
	}
	if _, ok := services.ContentFromContext(ctx); ok {
		t.Fatal("expected no content value")
	}
}
