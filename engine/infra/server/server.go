package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/compozy/triggers/pkg/logger"
	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg        *Config
	log        logger.Logger
	version    string
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(ctx context.Context, cfg *Config, deps *Deps) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	log := logger.FromContext(ctx)
	r, err := BuildRouter(log, cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return &Server{
		cfg:     cfg,
		log:     log,
		version: deps.Version,
		router:  r,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  cfg.readTimeout(),
			WriteTimeout: cfg.writeTimeout(),
			IdleTimeout:  cfg.idleTimeout(),
		},
	}, nil
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logStartupBanner()
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.shutdownTimeout())
	defer cancel()
	s.log.Info("Shutting down HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}
