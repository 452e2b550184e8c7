package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"spendsync/internal/interfaces/scheduler"
)

// StartServer creates the HTTP server and starts it in the background.
// A listen failure is reported on the returned channel.
func StartServer(addr string, handler http.Handler, logger zerolog.Logger) (*http.Server, <-chan error) {
	// Imports and full syncs can take longer than a typical request.
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return srv, errCh
}

// GracefulShutdown stops the scheduler first so no new jobs start, then the server.
func GracefulShutdown(srv *http.Server, sched *scheduler.Scheduler, timeout time.Duration, logger zerolog.Logger) {
	logger.Info().Msg("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if sched != nil {
		sched.Shutdown(timeout)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("error shutting down HTTP server")
	}

	logger.Info().Msg("server stopped")
}
