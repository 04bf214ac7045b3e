package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"nxqueue/internal/api"
	"nxqueue/internal/config"
	"nxqueue/internal/logging"
	"nxqueue/internal/queue"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// activeRequest toggles the administrative status.
type activeRequest struct {
	Active bool `json:"active"`
}

type activeResponse struct {
	Active  bool `json:"active"`
	Changed bool `json:"changed"`
}

type forgetOwnerResponse struct {
	Removed int64 `json:"removed"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware(s.daemon.metrics))

	r.Method(http.MethodGet, "/metrics", s.daemon.metrics.Handler())

	r.Group(func(r chi.Router) {
		if limit := cfg.Paths.APIRateLimit; limit > 0 {
			r.Use(httprate.LimitByIP(limit, time.Minute))
		}
		r.Use(authMiddleware(cfg.Paths.APIToken))

		r.Get("/api/status", s.handleStatus)
		r.Put("/api/admin/active", s.handleSetActive)
		r.Get("/api/queues", s.handleQueues)
		r.Post("/api/queues/purge", s.handlePurge)
		r.Route("/api/queues/{queue}", func(r chi.Router) {
			r.Post("/purge", s.handlePurge)
			r.Delete("/owners", s.handleForgetOwner)
			r.Get("/items", s.handleItems)
			r.Post("/items", s.handleSubmit)
			r.Get("/items/{item}", s.handleItem)
			r.Put("/items/{item}", s.handleUpdate)
			r.Delete("/items/{item}", s.handleRemove)
			r.Post("/items/{item}/blacklist", s.handleBlacklist)
			r.Post("/items/{item}/relaunch", s.handleRelaunch)
		})
	})
	return r
}

func (s *apiServer) listen() error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	return nil
}

// serve runs until ctx is canceled, then shuts the server down.
func (s *apiServer) serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()
	s.log().Info("api server listening", logging.String("address", s.listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	changed := s.daemon.SetActive(req.Active)
	s.writeJSON(w, http.StatusOK, activeResponse{Active: s.daemon.IsActive(), Changed: changed})
}

func (s *apiServer) handleQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := s.daemon.queues.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueListResponse{Queues: queues})
}

func (s *apiServer) handleItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.queues.Items(r.Context(), chi.URLParam(r, "queue"), r.URL.Query().Get("owner"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueItemsResponse{Items: items})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := s.daemon.queues.Submit(r.Context(), chi.URLParam(r, "queue"), req)
	if err != nil && result.Outcome == "" {
		s.fail(w, r, err)
		return
	}
	if err != nil {
		s.log().Warn("submitted content failed processing",
			logging.Queue(chi.URLParam(r, "queue")),
			logging.Error(err),
		)
	}
	status := http.StatusOK
	if result.Outcome == string(queue.OutcomeAccepted) {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, result)
}

func (s *apiServer) handleItem(w http.ResponseWriter, r *http.Request) {
	s.itemAction(w, r, s.daemon.queues.Describe)
}

func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	s.itemAction(w, r, s.daemon.queues.Remove)
}

func (s *apiServer) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	s.itemAction(w, r, s.daemon.queues.Blacklist)
}

func (s *apiServer) handleRelaunch(w http.ResponseWriter, r *http.Request) {
	s.itemAction(w, r, s.daemon.queues.Relaunch)
}

func (s *apiServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.itemAction(w, r, func(ctx context.Context, queueName, item string) (*api.QueueItem, error) {
		return s.daemon.queues.Update(ctx, queueName, item, req.Content)
	})
}

func (s *apiServer) itemAction(w http.ResponseWriter, r *http.Request, action func(context.Context, string, string) (*api.QueueItem, error)) {
	// chi yields the decoded segment unless the request carried a RawPath.
	item := chi.URLParam(r, "item")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(item)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid item name")
			return
		}
		item = unescaped
	}
	dto, err := action(r.Context(), chi.URLParam(r, "queue"), item)
	if err != nil && dto == nil {
		s.fail(w, r, err)
		return
	}
	if err != nil {
		s.log().Warn("queue action finished with error", logging.Error(err))
	}
	s.writeJSON(w, http.StatusOK, dto)
}

func (s *apiServer) handleForgetOwner(w http.ResponseWriter, r *http.Request) {
	removed, err := s.daemon.queues.ForgetOwner(r.Context(), chi.URLParam(r, "queue"), r.URL.Query().Get("owner"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, forgetOwnerResponse{Removed: removed})
}

func (s *apiServer) handlePurge(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.queues.Purge(r.Context(), chi.URLParam(r, "queue"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := api.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
