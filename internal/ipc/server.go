package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"nxqueue/internal/api"
	"nxqueue/internal/daemon"
	"nxqueue/internal/logging"
)

// ServiceName is the RPC receiver name the client calls.
const ServiceName = "NXQueue"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx, socket: path}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
	socket string
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	resp.SocketPath = s.socket
	resp.APIAddr = s.daemon.APIAddr()
	return nil
}

func (s *service) QueueList(_ QueueListRequest, resp *QueueListResponse) error {
	queues, err := s.daemon.Queues().List(s.ctx)
	if err != nil {
		return err
	}
	resp.Queues = queues
	return nil
}

func (s *service) QueueShow(req QueueShowRequest, resp *QueueShowResponse) error {
	if req.Item != "" {
		item, err := s.daemon.Queues().Describe(s.ctx, req.Queue, req.Item)
		if err != nil {
			return err
		}
		resp.Items = []QueueItem{*item}
		return nil
	}
	items, err := s.daemon.Queues().Items(s.ctx, req.Queue, req.Owner)
	if err != nil {
		return err
	}
	resp.Items = items
	return nil
}

func (s *service) QueueSubmit(req QueueSubmitRequest, resp *QueueSubmitResponse) error {
	result, err := s.daemon.Queues().Submit(s.ctx, req.Queue, api.SubmitRequest{
		Owner:     req.Owner,
		Item:      req.Item,
		Content:   req.Content,
		IfUnknown: req.IfUnknown,
	})
	if err != nil && result.Outcome == "" {
		return err
	}
	resp.Outcome = result.Outcome
	resp.Item = result.Item
	if err != nil {
		resp.ProcessingError = err.Error()
	}
	s.log().Info("content submitted via IPC",
		logging.String(logging.FieldEventType, "queue_submit"),
		logging.Queue(req.Queue),
		logging.String(logging.FieldOwner, req.Owner),
		logging.String("outcome", result.Outcome))
	return nil
}

func (s *service) QueueBlacklist(req QueueItemRequest, resp *QueueItemResponse) error {
	return s.itemAction(req, resp, s.daemon.Queues().Blacklist)
}

func (s *service) QueueRemove(req QueueItemRequest, resp *QueueItemResponse) error {
	return s.itemAction(req, resp, s.daemon.Queues().Remove)
}

func (s *service) QueueRelaunch(req QueueItemRequest, resp *QueueItemResponse) error {
	return s.itemAction(req, resp, s.daemon.Queues().Relaunch)
}

func (s *service) QueueUpdate(req QueueUpdateRequest, resp *QueueItemResponse) error {
	return s.itemAction(QueueItemRequest{Queue: req.Queue, Item: req.Item}, resp,
		func(ctx context.Context, queueName, item string) (*api.QueueItem, error) {
			return s.daemon.Queues().Update(ctx, queueName, item, req.Content)
		})
}

func (s *service) itemAction(req QueueItemRequest, resp *QueueItemResponse, action func(context.Context, string, string) (*api.QueueItem, error)) error {
	item, err := action(s.ctx, req.Queue, req.Item)
	if item == nil {
		return err
	}
	resp.Item = *item
	if err != nil {
		resp.ProcessingError = err.Error()
	}
	return nil
}

func (s *service) QueueForgetOwner(req QueueForgetOwnerRequest, resp *QueueForgetOwnerResponse) error {
	removed, err := s.daemon.Queues().ForgetOwner(s.ctx, req.Queue, req.Owner)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("owner content removed via IPC",
		logging.String(logging.FieldEventType, "queue_forget_owner"),
		logging.String(logging.FieldOwner, req.Owner),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) QueuePurge(req QueuePurgeRequest, resp *QueuePurgeResponse) error {
	result, err := s.daemon.Queues().Purge(s.ctx, req.Queue)
	if err != nil {
		return err
	}
	resp.Removed = result.Removed
	resp.Error = result.Error
	return nil
}

func (s *service) AdminSetActive(req AdminSetActiveRequest, resp *AdminSetActiveResponse) error {
	resp.Changed = s.daemon.SetActive(req.Active)
	resp.Active = s.daemon.IsActive()
	return nil
}
