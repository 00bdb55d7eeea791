// Package httpapi serves the relay API: tenant registration, message
// ingestion and mailbox drains.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// NewRouter builds the routed, middleware-wrapped relay API
func NewRouter(handler *Handler, cfg config.ServerConfig, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(accessLog(logger), limitBody(cfg.MaxBodyBytes), withTimeout(cfg.RequestTimeout))
	handler.RegisterRoutes(r)

	r.NotFoundHandler = accessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Failed: "Not found", Code: "not_found"})
	}))
	r.MethodNotAllowedHandler = accessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Failed: "Method not allowed", Code: "invalid_request"})
	}))

	if len(cfg.CORSAllowedOrigins) == 0 {
		return r
	}
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	})
	return c.Handler(r)
}

// Server is the HTTP listener of the relay API
type Server struct {
	cfg    config.ServerConfig
	logger *zap.Logger

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// NewServer creates a new HTTP server for handler
func NewServer(handler *Handler, cfg config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		server: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      NewRouter(handler, cfg, logger),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

// Name identifies the listener
func (s *Server) Name() string { return "http" }

// Addr returns the bound address once started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start binds the listener and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("HTTP relay API starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP relay API stopping")
	return s.server.Shutdown(ctx)
}
