package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/unison/internal/server"
	"github.com/desertthunder/unison/internal/shared"
)

// Serve exposes the merged library and engine metrics until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return r.withLibrary(ctx, func(s *session) error {
		logger := shared.WithLogger(r.logger, "component", "server")
		if err := s.lib.Index().Refresh(ctx, s.lib.Albums(), r.config.PageSize()); err != nil {
			logger.Warn("album index unavailable", "error", err)
		}

		router := server.NewBasicRouter()
		router.Use(server.Recoverer(logger), server.RequestLogger(logger))
		router.Handler(server.NewLibraryHandler(s.lib, r.config.PageSize(), logger))
		router.Handle(http.MethodGet, "/metrics", promhttp.Handler())

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("listening", "addr", addr, "cores", s.lib.Cores())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrors <- err
			}
			close(serverErrors)
		}()

		select {
		case err, ok := <-serverErrors:
			if ok {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error shutting down server", "error", err)
		}
		return nil
	})
}
