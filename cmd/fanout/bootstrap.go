package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/datallboy/fanout/internal/app"
	"github.com/datallboy/fanout/internal/infra/config"
	"github.com/datallboy/fanout/internal/infra/logger"
	"github.com/datallboy/fanout/internal/infra/metrics"
	"github.com/datallboy/fanout/internal/store"
	"github.com/datallboy/fanout/internal/transfer"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, cmd.Flags())
}

// bootstrap wires the services every command shares. The returned cleanup
// closes the store.
func bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app.Context, func(), error) {
	appCtx := app.NewContext(cfg, log)

	fs := afero.NewOsFs()
	fetcher := transfer.NewMuxFetcher(
		transfer.NewHTTPFetcher(transfer.ClientConfig{
			Timeout:   cfg.HTTP.Timeout,
			UserAgent: cfg.HTTP.UserAgent,
		}),
		transfer.NewFileFetcher(fs),
	)

	if cfg.S3.Enabled {
		client, err := transfer.NewS3Client(ctx, transfer.S3ClientConfig{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			HTTPClient:      &http.Client{Timeout: cfg.HTTP.Timeout},
		})
		if err != nil {
			return nil, nil, err
		}
		fetcher.Register("s3", transfer.NewS3Fetcher(client))
	}
	appCtx.Downloader = transfer.NewDownloader(fs, fetcher, cfg.BufferBytes)
	appCtx.Metrics = metrics.New("fanout")

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	appCtx.Store = st

	cleanup := func() {
		if err := st.Close(); err != nil {
			appCtx.Logger.Warn("failed to close store: %v", err)
		}
	}
	return appCtx, cleanup, nil
}

// consoleFor returns the sink error lines are echoed to, or nil when the
// console is disabled.
func consoleFor(cfg *config.Config, w io.Writer) io.Writer {
	if !cfg.Log.Console {
		return nil
	}
	return w
}
