package main

import (
	"context"
	"fmt"
	"log/slog"

	"nxqueue/internal/config"
	"nxqueue/internal/daemon"
	"nxqueue/internal/docstore"
	"nxqueue/internal/ipc"
	"nxqueue/internal/lock"
	"nxqueue/internal/logging"
)

// instance holds the started daemon and its IPC server.
type instance struct {
	daemon *daemon.Daemon
	server *ipc.Server
	logger *slog.Logger
}

// start opens the document store and lock coordinator, registers the
// configured queues, and begins serving the daemon over IPC.
func start(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*instance, error) {
	store, err := docstore.Open(cfg.DocumentStorePath())
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	locks, err := lock.New(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open lock coordinator: %w", err)
	}

	d, err := daemon.New(ctx, cfg, store, locks, logger)
	if err != nil {
		locks.Close()
		store.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}

	if err := d.Start(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("start daemon: %w", err)
	}

	server, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("start IPC server: %w", err)
	}
	server.Serve()

	return &instance{daemon: d, server: server, logger: logger}, nil
}

func (r *instance) close() {
	r.server.Close()
	if err := r.daemon.Close(); err != nil {
		r.logger.Warn("daemon shutdown incomplete", logging.Error(err))
	}
}
