package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blogd/internal/api"
	"blogd/internal/config"
	"blogd/internal/server"
	"blogd/internal/web"
)

func newWebCmd(cfg *config.Config) *cobra.Command {
	var previewTTL time.Duration

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Run the blogd web client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			logger := slog.Default().With("component", "web")

			addr, err := server.ListenAddr(cfg.WebURL)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := initTracing(ctx, cfg, "web")
			if err != nil {
				return err
			}
			defer flush("tracing", logger, shutdownTracing)

			app, err := web.New(web.Options{
				Backend:        api.NewClient(cfg.APIURL),
				Logger:         logger,
				MaxUploadBytes: cfg.Images.MaxUploadBytes,
				PreviewTTL:     previewTTL,
			})
			if err != nil {
				return err
			}
			logger.Info("using api", "url", cfg.APIURL)
			return app.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().DurationVar(&previewTTL, "preview-ttl", web.DefaultPreviewTTL, "how long an unsubmitted image preview is kept")
	return cmd
}
