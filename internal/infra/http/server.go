package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/asklokesh/FireLater-sub015/internal/config"
	"github.com/asklokesh/FireLater-sub015/pkg/logger"
)

// Server wraps http.Server with graceful shutdown.
type Server struct {
	httpServer *http.Server
	config     *config.ServerConfig
	logger     *logger.Logger
}

// NewServer creates the admin API server.
func NewServer(cfg *config.ServerConfig, router http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		config: cfg,
		logger: log.With("component", "http_server"),
	}
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("admin API listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down admin API")
	return s.httpServer.Shutdown(ctx)
}
