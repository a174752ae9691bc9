package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/datallboy/fanout/internal/api"
	"github.com/datallboy/fanout/internal/engine"
	"github.com/datallboy/fanout/internal/infra/logger"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept runs over HTTP",
		Long: `Starts the HTTP API:

  POST /api/runs      start a run from {"units":[{"source":..,"destination":..}]}
  GET  /api/runs      list recorded runs
  GET  /api/runs/:id  show one run, with worker liveness while it is running
  GET  /metrics       Prometheus metrics

Each run logs to <log prefix>.<run id>.main and <log prefix>.<run id>.<worker>.`,
		Args: cobra.NoArgs,
		RunE: serve,
	}

	cmd.Flags().String("listen", ":8080", "address to listen on")
	cmd.Flags().IntP("workers", "w", 16, "default number of workers per run")
	cmd.Flags().String("log-prefix", "/tmp/fanout.log", "log file prefix")
	return cmd
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level := logger.ParseLevel(cfg.Log.Level)
	log, err := logger.New(cfg.Log.Prefix+".server", level, cfg.Log.Console)
	if err != nil {
		return fmt.Errorf("failed to open server log: %w", err)
	}
	defer log.Close()

	appCtx, cleanup, err := bootstrap(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	console := consoleFor(cfg, cmd.ErrOrStderr())
	appCtx.Logs = func(runID string) (*logger.Set, error) {
		return logger.NewSet(cfg.Log.Prefix+"."+runID, level, console)
	}

	manager := engine.NewRunManager(appCtx)

	e := echo.New()
	api.RegisterRoutes(e, appCtx, manager)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down; %d runs still in flight", manager.Active())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
