// Package server runs the daemon's long-lived components.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// Config for the runner.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	PruneInterval   time.Duration
}

// Pruner periodically removes expired cache entries until ctx ends.
type Pruner interface {
	RunPruner(ctx context.Context, interval time.Duration) error
}

// Runner manages the HTTP server and background maintenance.
type Runner struct {
	config  Config
	handler http.Handler
	pruner  Pruner
	logger  *slog.Logger

	// listen is replaceable in tests.
	listen func(network, addr string) (net.Listener, error)
}

// NewRunner creates a new runner. pruner may be nil.
func NewRunner(cfg Config, handler http.Handler, pruner Pruner, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Runner{
		config:  cfg,
		handler: handler,
		pruner:  pruner,
		logger:  logger,
		listen:  net.Listen,
	}
}

// Run starts all components.
// It blocks until the context is canceled or a component fails, then shuts
// the HTTP server down gracefully. A clean shutdown returns nil.
func (r *Runner) Run(ctx context.Context) error {
	ln, err := r.listen("tcp", r.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.config.Addr, err)
	}

	srv := &http.Server{
		Handler:           r.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		r.logger.Info("http server stopped")
		return nil
	})

	if r.pruner != nil {
		g.Go(func() error {
			r.logger.Info("cache pruner started", "interval", r.config.PruneInterval)
			return r.pruner.RunPruner(ctx, r.config.PruneInterval)
		})
	}

	return g.Wait()
}
