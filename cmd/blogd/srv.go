package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blogd/internal/config"
	"blogd/internal/server"
)

const shutdownFlushTimeout = 5 * time.Second

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the blogd API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, slog.Default().With("component", "server"))
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	addr, err := server.ListenAddr(cfg.APIURL)
	if err != nil {
		return err
	}

	shutdownTracing, err := initTracing(ctx, cfg, "api")
	if err != nil {
		return err
	}
	defer flush("tracing", logger, shutdownTracing)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	images, err := openImages(ctx, cfg, logger)
	if err != nil {
		return err
	}

	publisher, err := openEvents(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	srv := server.New(addr, server.Options{
		Store:           st,
		Images:          images,
		Events:          publisher,
		MaxUploadBytes:  cfg.Images.MaxUploadBytes,
		ImageGCInterval: time.Duration(cfg.Images.GCIntervalSeconds) * time.Second,
		ImageGCGrace:    time.Duration(cfg.Images.GCGraceSeconds) * time.Second,
		Logger:          logger,
	})
	return srv.ListenAndServe(ctx)
}

func flush(name string, logger *slog.Logger, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("shutdown failed", "component", name, "error", err)
	}
}
