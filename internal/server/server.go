package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/net/netutil"

	"example.com/mediagate/internal/config"
	"example.com/mediagate/internal/logger"
	"example.com/mediagate/internal/metrics"
)

// Server owns the gateway's listeners and lifecycle: the main HTTP server,
// the optional metrics server, and graceful shutdown on SIGINT/SIGTERM.
type Server struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	handler http.Handler

	httpServer    *http.Server
	metricsServer *http.Server
}

// New builds a fully-wired Server from a validated configuration.
func New(cfg *config.Config, lg *logger.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	var m *metrics.Metrics
	if *cfg.Metrics.Enabled {
		m = metrics.New()
	}

	gw, err := NewGateway(cfg, lg, m)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		log:     lg,
		metrics: m,
		handler: instrument(gw, lg, m),
	}
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}
	return s, nil
}

// Handler returns the instrumented gateway handler. Exposed for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens and serves until SIGINT or SIGTERM, then shuts down
// gracefully within the configured timeout. It returns nil after a clean
// shutdown.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Listen, err)
	}
	ln = netutil.LimitListener(ln, *s.cfg.Server.MaxConnections)

	errCh := make(chan error, 2)
	go func() {
		s.log.Info("gateway listening", logger.LogFields{
			"address":         ln.Addr().String(),
			"server_name":     s.cfg.Server.ServerName,
			"max_connections": *s.cfg.Server.MaxConnections,
		})
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		s.metricsServer = &http.Server{Addr: s.cfg.Metrics.Listen, Handler: mux}
		go func() {
			s.log.Info("metrics listening", logger.LogFields{"address": s.cfg.Metrics.Listen})
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		s.log.Info("shutting down", logger.LogFields{"signal": sig.String()})
		return s.Shutdown()
	case err := <-errCh:
		s.log.Error("server failed", logger.LogFields{"error": err.Error()})
		return err
	}
}

// Shutdown stops both servers, allowing in-flight requests the configured
// grace period.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	var firstErr error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return fmt.Errorf("shutdown incomplete: %w", firstErr)
	}
	s.log.Info("shutdown complete", nil)
	return nil
}
