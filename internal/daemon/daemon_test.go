package daemon_test

import (
	"context"
	"strings"
	"testing"

	"nxqueue/internal/api"
	"nxqueue/internal/config"
	"nxqueue/internal/daemon"
	"nxqueue/internal/lock"
	"nxqueue/internal/logging"
	"nxqueue/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	locks, err := lock.New(cfg)
	if err != nil {
		t.Fatalf("lock.New: %v", err)
	}
	d, err := daemon.New(context.Background(), cfg, store, locks, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second Start to fail")
	}
	if d.APIAddr() == "" {
		t.Fatal("expected api server to be bound")
	}

	status := d.Status(ctx)
	if !status.Running || !status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.LockFilePath != cfg.DaemonLockPath() {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if len(status.Queues) != 1 || status.Queues[0].Queue != "default" {
		t.Fatalf("unexpected queues: %+v", status.Queues)
	}
	if !status.Database.IntegrityCheck {
		t.Fatalf("expected healthy store: %+v", status.Database)
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	d.Stop()
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	first := newDaemon(t, cfg)
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(first.Stop)

	second := newDaemon(t, cfg)
	err := second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected single-instance failure, got %v", err)
	}
}

func TestDaemonSetActive(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAdminActive(false))
	d := newDaemon(t, cfg)
	ctx := context.Background()

	_, err := d.Queues().Submit(ctx, "default", api.SubmitRequest{Owner: "user:alice", Item: "a", Content: "x"})
	if err == nil {
		t.Fatal("expected passive node to refuse submissions")
	}
	if !d.SetActive(true) {
		t.Fatal("expected status change")
	}
	if d.SetActive(true) {
		t.Fatal("expected no change on repeated activation")
	}
	res, err := d.Queues().Submit(ctx, "default", api.SubmitRequest{Owner: "user:alice", Item: "a", Content: "x"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Outcome != "accepted" {
		t.Fatalf("unexpected outcome %q", res.Outcome)
	}
}

func TestDaemonRejectsUnknownPersister(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueues(config.Queue{
		Name: "jobs", ContentType: "string", Persister: "tape", Processor: "log",
	}))
	store := testsupport.MustOpenStore(t, cfg)
	locks, err := lock.New(cfg)
	if err != nil {
		t.Fatalf("lock.New: %v", err)
	}
	t.Cleanup(func() { _ = locks.Close() })
	if _, err := daemon.New(context.Background(), cfg, store, locks, logging.NewNop()); err == nil {
		t.Fatal("expected unknown persister to fail")
	}
}
