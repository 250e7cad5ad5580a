package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/restaurant-grades-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/restaurant-grades-etl/internal/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Grade on a schedule and serve health, metrics and grade lookups",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		metrics := observability.NewMetrics()
		p, out, err := buildPipeline(ctx, cfg, metrics, logger)
		if err != nil {
			return err
		}
		defer out.close(logger)

		srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()

		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()

		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warn("pipeline did not stop before shutdown timeout")
		}

		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
