package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hazama-dev/mediaforge/internal/api/handler"
	"github.com/hazama-dev/mediaforge/internal/api/middleware"
	"github.com/hazama-dev/mediaforge/internal/config"
	"github.com/hazama-dev/mediaforge/internal/derive"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
	"github.com/hazama-dev/mediaforge/internal/infrastructure/cancel"
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
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

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

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	cancelSignal := cancel.NewRedisSignal(redisClient)

	orch, err := newOrchestrator(cfg, store, logger)
	if err != nil {
		return err
	}

	mediaRepo := postgres.NewMediaRepository(pgClient.Pool(), cfg.Storage.BasePath)
	svc := usecase.NewDerivativeService(
		mediaRepo,
		orch,
		queueClient,
		cancelSignal,
		usecase.DerivativeServiceConfig{
			DefaultPositionPercentage: cfg.Thumbnail.DefaultPositionPercentage,
			MaxLiveBytes:              cfg.Transcode.MaxLiveBytes,
		},
		logger,
	)

	r := setupRouter(logger, handler.NewDerivativeHandler(svc, cancelSignal))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
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
	extractor := derive.NewFFmpegExtractor(derive.FFmpegConfig{
		FFmpegPath: cfg.Tools.FFmpegPath,
		TempDir:    cfg.Worker.TempDir,
		Timeout:    cfg.Tools.RunTimeout,
	})
	converter := derive.NewToolConverter(cfg.Tools.FFmpegPath, cfg.Tools.RunTimeout)

	return derive.NewOrchestrator(
		prober,
		extractor,
		derive.NewImagingResizer(),
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

func setupRouter(logger *slog.Logger, dh *handler.DerivativeHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/tools", dh.Tools)
		r.Post("/media/{id}/thumbnails", dh.GenerateThumbnails)
		r.Post("/media/{id}/transcode", dh.GenerateTranscode)
		r.Post("/derivatives/bulk", dh.BulkThumbnails)
		r.Post("/derivatives/bulk/{runID}/cancel", dh.CancelBulk)
	})

	return r
}
