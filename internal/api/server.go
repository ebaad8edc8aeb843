// Package api provides the HTTP API server for thingsd.
//
// It exposes the public resource listing, authenticated CRUD on things,
// the administrative user sub-API, and the notification hub endpoints
// (event-stream, one-shot, and WebSocket delivery).
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/thingsd/internal/auth"
	"github.com/nerrad567/thingsd/internal/credstore"
	"github.com/nerrad567/thingsd/internal/infrastructure/config"
	"github.com/nerrad567/thingsd/internal/infrastructure/logging"
	"github.com/nerrad567/thingsd/internal/infrastructure/mqtt"
	"github.com/nerrad567/thingsd/internal/thing"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  *config.Config
	Logger  *logging.Logger
	Things  thing.Store
	Users   credstore.Store
	Relay   *mqtt.Client // optional; nil disables the MQTT relay
	Version string
}

// Server is the HTTP API server for thingsd.
//
// It manages the HTTP listener, routes, middleware, and notification hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	things  thing.Store
	users   credstore.Store
	relay   *mqtt.Client
	authn   *auth.Authenticator
	version string
	server  *http.Server
	hub     *Hub
	cancel  context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Things == nil {
		return nil, fmt.Errorf("thing store is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	// Relay is optional; broadcasts still reach HTTP subscribers without it.

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		things:  deps.Things,
		users:   deps.Users,
		relay:   deps.Relay,
		authn:   auth.NewAuthenticator(deps.Users),
		version: deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the notification hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop the hub independently of
	// the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.logger)
	go s.hub.Run(srvCtx)

	// No WriteTimeout: subscriber connections stay open indefinitely
	// and a write deadline would sever them mid-stream.
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It stops the hub, disconnecting all subscribers, then waits up to 10
// seconds for in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
