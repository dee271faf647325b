package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sellerops/spbridge/gate"
	"github.com/sellerops/spbridge/health"
	"github.com/sellerops/spbridge/observe"
	"github.com/sellerops/spbridge/tools"
)

// Config configures the HTTP server.
type Config struct {
	// Addr is the listen address. Default ":8000".
	Addr string

	// Gate runs admission control in front of every endpoint. Required.
	Gate *gate.Gate

	// Registry holds the callable tools. Required.
	Registry *tools.Registry

	// Health aggregates component checks for GET /health. Optional.
	Health *health.Registry

	// ServiceName and Version appear in /health and /docs.
	ServiceName string
	Version     string

	// ShutdownTimeout bounds graceful shutdown. Default 15s.
	ShutdownTimeout time.Duration

	// Logger is optional.
	Logger observe.Logger
}

// Server serves the tool API.
type Server struct {
	config   Config
	registry *tools.Registry
	logger   observe.Logger
	http     *http.Server
}

// New creates a server. The Gate and Registry are required.
func New(config Config) (*Server, error) {
	if config.Gate == nil {
		return nil, errors.New("server: gate is required")
	}
	if config.Registry == nil {
		return nil, errors.New("server: registry is required")
	}
	if config.Addr == "" {
		config.Addr = ":8000"
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 15 * time.Second
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Health == nil {
		config.Health = health.NewRegistry()
	}

	s := &Server{
		config:   config,
		registry: config.Registry,
		logger:   config.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/health", health.Handler(config.Health, config.ServiceName, config.Version))
	mux.HandleFunc("/docs", s.handleDocs)

	s.http = &http.Server{
		Addr:              config.Addr,
		Handler:           config.Gate.Middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the full handler chain, admission control included.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "server listening", observe.F("addr", s.config.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// docsResponse describes the API surface.
type docsResponse struct {
	Service   string             `json:"service"`
	Version   string             `json:"version"`
	Endpoints []endpointDoc      `json:"endpoints"`
	Tools     []tools.Definition `json:"tools"`
}

type endpointDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, docsResponse{
		Service: s.config.ServiceName,
		Version: s.config.Version,
		Endpoints: []endpointDoc{
			{Method: "POST", Path: "/rpc", Description: "Tool RPC endpoint (tools/list, tools/call)"},
			{Method: "GET", Path: "/health", Description: "Aggregate service health"},
			{Method: "GET", Path: "/docs", Description: "This document"},
		},
		Tools: s.registry.List(),
	})
}
