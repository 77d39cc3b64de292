package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vango-dev/livehooks/internal/config"
	"github.com/vango-dev/livehooks/internal/errors"
	"github.com/vango-dev/livehooks/internal/regiondata"
	"github.com/vango-dev/livehooks/pkg/middleware"
	"github.com/vango-dev/livehooks/pkg/server"
	"github.com/vango-dev/livehooks/pkg/upload"
)

func serveCmd(c *cli) *cobra.Command {
	var (
		addr      string
		noUploads bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sync server",
		Long: `Run the WebSocket sync server.

The server answers region select events from the built-in dataset (or
server.regions), accepts dropped files on POST /upload and exposes
/metrics and /healthz.

Examples:
  livehooks serve
  livehooks serve --addr :8080
  LIVEHOOKS_UPLOADS_BACKEND=s3 LIVEHOOKS_UPLOADS_BUCKET=drops livehooks serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger, err := c.logger(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger, !noUploads)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&noUploads, "no-uploads", false, "Disable POST /upload")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, uploads bool) error {
	regions := regiondata.Builtin()
	if cfg.Server.Regions != "" {
		var err error
		if regions, err = regiondata.Load(cfg.Server.Regions); err != nil {
			return err
		}
	}

	var opts []server.Option
	if uploads {
		store, err := newStore(cfg.Uploads)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithUploads(store, upload.Config{
			MaxFileSize:  cfg.Uploads.MaxSize,
			AllowedTypes: cfg.Uploads.AllowedTypes,
		}))
		go cleanupLoop(ctx, store, cfg.Uploads.MaxAge, logger)
		logger.Info("uploads enabled", "backend", cfg.Uploads.Backend)
	}

	srv := server.New(serverConfig(cfg, logger), opts...)
	srv.Use(
		middleware.OpenTelemetry(),
		middleware.Prometheus(middleware.WithRegistry(srv.Registry())),
		middleware.Logging(logger),
		middleware.Timeout(cfg.Server.HandlerTimeout),
	)
	regiondata.NewHandlers(regions, logger).Register(srv)
	logger.Info("handlers registered", "events", srv.Events())

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func serverConfig(cfg *config.Config, logger *slog.Logger) server.Config {
	return server.Config{
		LivePath:          cfg.Server.LivePath,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		HeartbeatInterval: cfg.Server.HeartbeatInterval,
		MaxMessageSize:    cfg.Server.MaxMessageSize,
		SendBuffer:        cfg.Server.SendBuffer,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		Logger:            logger,
	}
}

// newStore builds the configured upload backend.
func newStore(cfg config.UploadsConfig) (upload.Store, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return upload.NewS3Store(newS3Client(cfg), cfg.Bucket, cfg.Prefix, cfg.MaxSize), nil
	case config.BackendDisk:
		return upload.NewDiskStore(cfg.Dir, cfg.MaxSize)
	}
	return nil, errors.New(errors.CodeConfigInvalid).WithDetailf("uploads.backend %q", cfg.Backend)
}

// newS3Client builds an S3 client from the uploads section and the
// standard AWS credential variables.
func newS3Client(cfg config.UploadsConfig) *s3.Client {
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "environment",
		}, nil
	})

	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	return s3.New(s3.Options{
		Region:       region,
		Credentials:  aws.NewCredentialsCache(creds),
		UsePathStyle: cfg.PathStyle,
	}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
}

// cleanupLoop removes unclaimed uploads older than maxAge.
func cleanupLoop(ctx context.Context, store upload.Store, maxAge time.Duration, logger *slog.Logger) {
	if maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(maxAge / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := store.Cleanup(ctx, maxAge); err != nil {
				logger.Warn("upload cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
