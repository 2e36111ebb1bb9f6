package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataclean/internal/core"
	"github.com/JonMunkholm/dataclean/internal/pipeline"
	"github.com/JonMunkholm/dataclean/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var rateLimit int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload-and-clean HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			proc := pipeline.NewProcessor(a.settings(), st, a.cfg.Cleaning.MemoryThresholdMB, slog.Default())
			svc := pipeline.NewService(pipeline.ServiceConfig{
				Paths:         a.paths(),
				Timeout:       a.cfg.Pipeline.Timeout,
				MaxConcurrent: a.cfg.Pipeline.MaxConcurrent,
				MaxWait:       a.cfg.Pipeline.MaxWaitTime,
			}, proc, st)

			server := web.NewServer(svc, web.Options{
				MaxUploadSize:  a.cfg.Pipeline.MaxUploadSize,
				RequestTimeout: a.cfg.Server.RequestTimeout,
				ReadTimeout:    a.cfg.Server.ReadTimeout,
				WriteTimeout:   a.cfg.Server.WriteTimeout,
				IdleTimeout:    a.cfg.Server.IdleTimeout,
				Security:       a.cfg.Security,
				RateLimit:      rateLimit,
			})

			slog.Info("datasets registered", "count", core.DatasetCount(), "keys", core.Keys())

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start(a.cfg.Server.Addr()) }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if status := svc.Limiter().Status(); status.Active > 0 {
				slog.Info("waiting for cleaning runs to complete", "active", status.Active)
			}
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Warn("shutdown incomplete", "error", err)
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&rateLimit, "rate-limit", 100, "Requests per minute per client; 0 disables")
	return cmd
}
