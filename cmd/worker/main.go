package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hazama-dev/mediaforge/internal/config"
	"github.com/hazama-dev/mediaforge/internal/derive"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
	"github.com/hazama-dev/mediaforge/internal/infrastructure/fsstore"
	"github.com/hazama-dev/mediaforge/internal/infrastructure/postgres"
	"github.com/hazama-dev/mediaforge/internal/infrastructure/queue"
	"github.com/hazama-dev/mediaforge/internal/infrastructure/storage"
	"github.com/hazama-dev/mediaforge/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Ensure temp directory exists
	if err := os.MkdirAll(cfg.Worker.TempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}

	pgClient, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	logger.Info("connected to PostgreSQL")

	store, err := newArtifactStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("artifact store ready", slog.String("backend", cfg.Storage.Backend))

	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.MaxRetries = cfg.Worker.MaxRetries
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	orch, err := newOrchestrator(cfg, store, logger)
	if err != nil {
		return err
	}

	mediaRepo := postgres.NewMediaRepository(pgClient.Pool(), cfg.Storage.BasePath)
	svc := usecase.NewDerivativeService(
		mediaRepo,
		orch,
		nil, // the worker only consumes
		nil,
		usecase.DerivativeServiceConfig{
			DefaultPositionPercentage: cfg.Thumbnail.DefaultPositionPercentage,
			MaxLiveBytes:              cfg.Transcode.MaxLiveBytes,
		},
		logger,
	)

	// Expose metrics for scraping alongside the consumer loop.
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
	defer func() { _ = metricsSrv.Close() }()

	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight tasks
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming derivative tasks")
		err := queueClient.ConsumeDerivativeTasks(ctx, func(task repository.DerivativeTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing task",
				slog.String("media_id", task.MediaID.String()),
				slog.String("kind", task.Kind.String()),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := svc.ProcessTask(ctx, task); err != nil {
				logger.Error("task processing failed",
					slog.String("media_id", task.MediaID.String()),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}

			logger.Info("task completed",
				slog.String("media_id", task.MediaID.String()),
			)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	// Wait for shutdown signal or error
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Cancel the main context to stop consuming new messages
	cancel()

	// Wait for in-flight tasks to complete (or timeout)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}

// newArtifactStore builds the configured artifact store backend.
func newArtifactStore(ctx context.Context, cfg *config.Config) (repository.ArtifactStore, error) {
	switch cfg.Storage.Backend {
	case "minio":
		client, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		return client, nil
	case "local":
		store, err := fsstore.New(cfg.Storage.BasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open local store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newOrchestrator builds the generation pipeline from configuration.
// The worker resizes with ffmpeg, which handles pixel formats the
// in-process decoder cannot.
func newOrchestrator(cfg *config.Config, store repository.ArtifactStore, logger *slog.Logger) (*derive.Orchestrator, error) {
	sizes, err := cfg.Thumbnail.SizeSpecs()
	if err != nil {
		return nil, err
	}
	profiles, err := cfg.Transcode.ProfileTable()
	if err != nil {
		return nil, err
	}

	prober := derive.NewFFprobeProber(derive.FFprobeConfig{
		FFprobePath: cfg.Tools.FFprobePath,
		Timeout:     cfg.Tools.ProbeTimeout,
	})
	ffmpegCfg := derive.FFmpegConfig{
		FFmpegPath: cfg.Tools.FFmpegPath,
		TempDir:    cfg.Worker.TempDir,
		Timeout:    cfg.Tools.RunTimeout,
	}
	converter := derive.NewToolConverter(cfg.Tools.FFmpegPath, cfg.Tools.RunTimeout)

	return derive.NewOrchestrator(
		prober,
		derive.NewFFmpegExtractor(ffmpegCfg),
		derive.NewFFmpegResizer(ffmpegCfg),
		converter,
		store,
		profiles,
		derive.OrchestratorConfig{
			Sizes:             sizes,
			TempDir:           cfg.Worker.TempDir,
			FanoutParallelism: cfg.Thumbnail.FanoutParallelism,
			ThumbnailsEnabled: cfg.Thumbnail.Enabled,
			TranscodesEnabled: cfg.Transcode.Enabled,
		},
		logger,
	), nil
}
