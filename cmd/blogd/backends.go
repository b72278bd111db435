package main

import (
	"context"
	"fmt"
	"log/slog"

	"blogd/internal/blobstore"
	"blogd/internal/config"
	"blogd/internal/events"
	"blogd/internal/store"
	"blogd/internal/store/mongostore"
	"blogd/internal/store/pgstore"
	"blogd/internal/tracing"
)

// openStore opens the content store selected by store.driver.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		logger.Info("opening database", "driver", cfg.Store.Driver, "path", cfg.DBPath)
		return store.Open(cfg.DBPath)
	case config.StoreDriverPostgres:
		logger.Info("opening database", "driver", cfg.Store.Driver)
		return pgstore.Open(ctx, cfg.Store.DSN)
	case config.StoreDriverMongo:
		logger.Info("opening database", "driver", cfg.Store.Driver, "database", cfg.Store.Database)
		return mongostore.Open(ctx, cfg.Store.DSN, cfg.Store.Database)
	default:
		return nil, fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}
}

// openImages returns the blob store for post images, or nil when images
// stay inline in the post record.
func openImages(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blobstore.BlobStore, error) {
	switch cfg.Images.Backend {
	case config.ImagesBackendInline:
		return nil, nil
	case config.ImagesBackendLocal:
		logger.Info("storing images on disk", "root", cfg.Images.LocalRoot)
		return blobstore.NewLocalCAS(cfg.Images.LocalRoot)
	case config.ImagesBackendS3:
		s3, err := blobstore.NewS3(blobstore.S3Config{
			Endpoint:  cfg.Images.S3Endpoint,
			AccessKey: cfg.Images.S3AccessKey,
			SecretKey: cfg.Images.S3SecretKey,
			UseSSL:    cfg.Images.S3UseSSL,
			Bucket:    cfg.Images.S3Bucket,
		})
		if err != nil {
			return nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Images.S3Bucket, err)
		}
		logger.Info("storing images in object storage", "endpoint", cfg.Images.S3Endpoint, "bucket", cfg.Images.S3Bucket)
		return s3, nil
	default:
		return nil, fmt.Errorf("unknown images.backend %q", cfg.Images.Backend)
	}
}

// openEvents returns a Kafka publisher when brokers are configured.
func openEvents(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if len(cfg.Events.Brokers) == 0 {
		return events.Noop{}, nil
	}
	logger.Info("publishing post events", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	return events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logger)
}

func initTracing(ctx context.Context, cfg *config.Config, service string) (tracing.ShutdownFunc, error) {
	name := cfg.Tracing.ServiceName
	if service != "" && name == config.DefaultTracingServiceName {
		name = name + "-" + service
	}
	return tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: name,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
}
