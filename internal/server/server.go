package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

// Options configures Run.
type Options struct {
	Addr string
	// WriteTimeout must cover the slowest synchronous feature run.
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// New wraps h in the standard middleware stack.
func New(h *Handler, log *slog.Logger) http.Handler {
	return Chain(h.Routes(), RequestID, Recover(log), Logger(log), h.metrics.Middleware)
}

// Run serves h until ctx is cancelled or the process receives SIGINT/SIGTERM,
// then shuts down gracefully.
func Run(ctx context.Context, h *Handler, opt Options, log *slog.Logger) error {
	if opt.WriteTimeout <= 0 {
		opt.WriteTimeout = 30 * time.Second
	}
	if opt.ShutdownTimeout <= 0 {
		opt.ShutdownTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:         opt.Addr,
		Handler:      New(h, log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: opt.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", opt.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opt.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
