package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmoralesv/panel-core/internal/audit"
	"github.com/dmoralesv/panel-core/internal/auth"
	"github.com/dmoralesv/panel-core/internal/infrastructure/config"
	"github.com/dmoralesv/panel-core/internal/infrastructure/logging"
	"github.com/dmoralesv/panel-core/internal/panel"
)

// gracefulShutdownTimeout is how long Close waits for in-flight
// requests before forcing the listener shut.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the server's collaborators.
type Deps struct {
	Config   config.APIConfig
	WSConfig config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Store       *panel.Store
	Sync        *panel.Synchronizer
	Users       auth.UserRepository
	Transitions panel.TransitionRepository
	Readings    panel.ReadingRepository
	Audit       audit.Repository
	Hub         *Hub

	// TransportUp reports whether the serial transport is connected.
	// Nil means the port never opened (manual mode).
	TransportUp func() bool

	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg    config.APIConfig
	wsCfg  config.WebSocketConfig
	secCfg config.SecurityConfig
	logger *logging.Logger

	store       *panel.Store
	sync        *panel.Synchronizer
	users       auth.UserRepository
	transitions panel.TransitionRepository
	readings    panel.ReadingRepository
	audit       audit.Repository
	hub         *Hub
	transportUp func() bool
	version     string

	tickets    *ticketStore
	httpServer *http.Server
	cancel     context.CancelFunc
}

// New validates dependencies and creates a server. Call Start to begin
// serving.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("api: logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("api: store is required")
	}
	if deps.Sync == nil {
		return nil, fmt.Errorf("api: synchronizer is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("api: user repository is required")
	}
	if deps.Transitions == nil {
		return nil, fmt.Errorf("api: transition repository is required")
	}
	if deps.Readings == nil {
		return nil, fmt.Errorf("api: reading repository is required")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("api: audit repository is required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("api: websocket hub is required")
	}

	return &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WSConfig,
		secCfg:      deps.Security,
		logger:      deps.Logger,
		store:       deps.Store,
		sync:        deps.Sync,
		users:       deps.Users,
		transitions: deps.Transitions,
		readings:    deps.Readings,
		audit:       deps.Audit,
		hub:         deps.Hub,
		transportUp: deps.TransportUp,
		version:     deps.Version,
		tickets:     newTicketStore(),
	}, nil
}

// Start launches the hub, the ticket cleaner and the HTTP listener.
// It returns immediately; listener errors are logged.
func (s *Server) Start() error {
	srvCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("starting HTTP API server", "addr", addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, disconnecting WebSocket
// clients and waiting for in-flight requests.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	return nil
}
