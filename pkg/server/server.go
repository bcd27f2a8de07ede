package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"mercator-hq/lazyproxy/pkg/config"
)

// Options configures one HTTP listener.
type Options struct {
	// Name identifies the listener in logs ("proxy", "admin").
	Name string

	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

// ProxyOptions returns listener options for the proxy listener.
func ProxyOptions(cfg config.ProxyConfig) Options {
	return Options{
		Name:            "proxy",
		Address:         cfg.ListenAddress,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxHeaderBytes:  cfg.MaxHeaderBytes,
	}
}

// AdminOptions returns listener options for the admin listener. Admin
// responses are small, so fixed read and write timeouts apply.
func AdminOptions(address string, shutdownTimeout time.Duration) Options {
	return Options{
		Name:            "admin",
		Address:         address,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: shutdownTimeout,
	}
}

// Server wraps an http.Server with context-driven start and graceful
// shutdown.
type Server struct {
	opts         Options
	handler      http.Handler
	httpServer   *http.Server
	listener     net.Listener
	logger       *slog.Logger
	ready        chan struct{}
	mu           sync.RWMutex
	isRunning    bool
	shuttingDown bool
}

// NewServer creates a server serving handler with opts.
func NewServer(opts Options, handler http.Handler) *Server {
	if opts.Name == "" {
		opts.Name = "http"
	}
	return &Server{
		opts:    opts,
		handler: handler,
		ready:   make(chan struct{}),
		logger:  slog.Default().With("component", "server", "listener", opts.Name),
	}
}

// Start listens on the configured address and serves until ctx is cancelled
// or the server fails. On cancellation it shuts down gracefully within
// ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s server has already been started", s.opts.Name)
	}

	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s server: listen on %s: %w", s.opts.Name, s.opts.Address, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		MaxHeaderBytes:    s.opts.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.isRunning = true
	s.mu.Unlock()
	close(s.ready)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("%s server error: %w", s.opts.Name, err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		s.markStopped()
		return err
	}
}

// Shutdown gracefully shuts down the server. Calls on a server that is not
// running, or is already shutting down, return nil.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning || s.shuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.shuttingDown = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("initiating graceful shutdown", "timeout", s.opts.ShutdownTimeout.String())

	shutdownCtx := ctx
	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, s.opts.ShutdownTimeout)
		defer cancel()
	}

	var shutdownErr error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		shutdownErr = fmt.Errorf("%s server shutdown error: %w", s.opts.Name, err)
		_ = httpServer.Close()
	}

	s.markStopped()
	s.logger.Info("server stopped")
	return shutdownErr
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before the server is listening.
// Useful when the configured port is 0.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Name returns the listener name.
func (s *Server) Name() string {
	return s.opts.Name
}
