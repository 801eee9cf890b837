package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/hazama-dev/mediaforge/internal/derive"
	"github.com/hazama-dev/mediaforge/internal/domain/model"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
	"github.com/hazama-dev/mediaforge/internal/infrastructure/metrics"
)

// Orchestrator is the pipeline surface the service drives.
// *derive.Orchestrator satisfies it; tests inject fakes.
type Orchestrator interface {
	GenerateThumbnails(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome
	GenerateTranscode(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome
	GenerateThumbnailsBulk(ctx context.Context, media []*model.MediaDescriptor, req model.DerivativeRequest, runID string, cancel repository.CancelSignal) model.BulkCounts
	ToolsAvailable() bool
}

// Compile-time verification that the concrete orchestrator satisfies
// the surface.
var _ Orchestrator = (*derive.Orchestrator)(nil)

// DerivativeServiceConfig holds configuration for DerivativeService.
type DerivativeServiceConfig struct {
	// DefaultPositionPercentage is applied when a request carries no
	// explicit capture position.
	DefaultPositionPercentage int

	// MaxLiveBytes is the source-size threshold at or below which a
	// request runs synchronously instead of being queued.
	MaxLiveBytes int64
}

// DerivativeService ties media lookup, the generation pipeline and the
// background queue together for the API server and the worker.
type DerivativeService struct {
	repo   repository.MediaRepository
	orch   Orchestrator
	queue  repository.MessageQueue
	cancel repository.CancelSignal
	config DerivativeServiceConfig
	logger *slog.Logger
}

// NewDerivativeService creates a new DerivativeService. queue may be
// nil for worker processes that only consume; cancel may be nil when no
// out-of-band cancellation channel exists.
func NewDerivativeService(
	repo repository.MediaRepository,
	orch Orchestrator,
	queue repository.MessageQueue,
	cancel repository.CancelSignal,
	cfg DerivativeServiceConfig,
	logger *slog.Logger,
) *DerivativeService {
	return &DerivativeService{
		repo:   repo,
		orch:   orch,
		queue:  queue,
		cancel: cancel,
		config: cfg,
		logger: logger,
	}
}

// requestFromTask reconstructs the generation request a task carries.
func (s *DerivativeService) requestFromTask(task repository.DerivativeTask) model.DerivativeRequest {
	req := model.DerivativeRequest{
		Kind:               task.Kind,
		PositionPercentage: task.PositionPercentage,
		ForceRegenerate:    task.ForceRegenerate,
		TargetFormat:       task.TargetFormat,
	}
	if req.Kind == model.KindThumbnail && req.PositionPercentage == 0 {
		req.PositionPercentage = s.config.DefaultPositionPercentage
	}
	return req
}

// ProcessTask handles one background task from the queue.
// Returns nil on success or permanent failure (the message is acked);
// returns an error for failures worth a retry.
func (s *DerivativeService) ProcessTask(ctx context.Context, task repository.DerivativeTask) error {
	md, err := s.repo.GetByID(ctx, task.MediaID)
	if err != nil {
		if err == repository.ErrMediaNotFound {
			s.logger.Warn("task references unknown media",
				slog.String("media_id", task.MediaID.String()),
			)
			return nil
		}
		return fmt.Errorf("get media: %w", err)
	}

	outcome := s.run(ctx, md, s.requestFromTask(task))
	if outcome.State != model.StateFailed {
		return nil
	}

	// Unsupported inputs and absent binaries won't improve on retry.
	switch derive.FailureKind(outcome.FailureKind) {
	case derive.FailUnsupportedType, derive.FailToolMissing:
		s.logger.Error("task failed permanently",
			slog.String("media_id", task.MediaID.String()),
			slog.String("reason", outcome.Reason),
		)
		return nil
	}
	return fmt.Errorf("generate %s for media %s: %s", task.Kind, task.MediaID, outcome.Reason)
}

// Generate runs one operation synchronously for a known media item.
func (s *DerivativeService) Generate(ctx context.Context, mediaID uuid.UUID, req model.DerivativeRequest) (model.Outcome, error) {
	md, err := s.repo.GetByID(ctx, mediaID)
	if err != nil {
		return model.Outcome{}, err
	}
	if req.Kind == model.KindThumbnail && req.PositionPercentage == 0 {
		req.PositionPercentage = s.config.DefaultPositionPercentage
	}
	return s.run(ctx, md, req), nil
}

// Dispatch decides between live and background generation: sources at
// or below the live threshold run synchronously, larger ones are
// queued. The returned outcome is nil when the work was queued.
func (s *DerivativeService) Dispatch(ctx context.Context, mediaID uuid.UUID, req model.DerivativeRequest) (*model.Outcome, error) {
	md, err := s.repo.GetByID(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	if s.queue != nil && !s.withinLiveBudget(md) {
		task := repository.DerivativeTask{
			MediaID:            mediaID,
			Kind:               req.Kind,
			TargetFormat:       req.TargetFormat,
			PositionPercentage: req.PositionPercentage,
			ForceRegenerate:    req.ForceRegenerate,
		}
		if err := s.queue.PublishDerivativeTask(ctx, task); err != nil {
			return nil, fmt.Errorf("publish task: %w", err)
		}
		s.logger.Info("task queued",
			slog.String("media_id", mediaID.String()),
			slog.String("kind", req.Kind.String()),
		)
		return nil, nil
	}

	if req.Kind == model.KindThumbnail && req.PositionPercentage == 0 {
		req.PositionPercentage = s.config.DefaultPositionPercentage
	}
	outcome := s.run(ctx, md, req)
	return &outcome, nil
}

// withinLiveBudget reports whether the source is small enough for
// synchronous processing.
func (s *DerivativeService) withinLiveBudget(md *model.MediaDescriptor) bool {
	if s.config.MaxLiveBytes <= 0 {
		return true
	}
	info, err := os.Stat(md.SourcePath)
	if err != nil {
		// Let the pipeline surface the real failure.
		return true
	}
	return info.Size() <= s.config.MaxLiveBytes
}

// GenerateBulk applies thumbnail generation to every media item the
// criteria select, continuing past individual failures.
func (s *DerivativeService) GenerateBulk(ctx context.Context, criteria repository.Criteria, req model.DerivativeRequest, runID string) (model.BulkCounts, error) {
	media, err := s.repo.Search(ctx, criteria)
	if err != nil {
		return model.BulkCounts{}, fmt.Errorf("search media: %w", err)
	}
	if req.PositionPercentage == 0 {
		req.PositionPercentage = s.config.DefaultPositionPercentage
	}

	counts := s.orch.GenerateThumbnailsBulk(ctx, media, req, runID, s.cancel)
	metrics.BulkItemsTotal.WithLabelValues(model.StateReady.String()).Add(float64(counts.Succeeded))
	metrics.BulkItemsTotal.WithLabelValues(model.StateFailed.String()).Add(float64(counts.Failed))
	metrics.BulkItemsTotal.WithLabelValues(model.StateSkipped.String()).Add(float64(counts.Skipped))
	return counts, nil
}

// ToolsAvailable reports whether the external binaries are usable.
func (s *DerivativeService) ToolsAvailable() bool {
	return s.orch.ToolsAvailable()
}

// run invokes the pipeline for one request and records metrics.
func (s *DerivativeService) run(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome {
	start := time.Now()

	var outcome model.Outcome
	switch req.Kind {
	case model.KindTranscode:
		outcome = s.orch.GenerateTranscode(ctx, md, req)
	default:
		outcome = s.orch.GenerateThumbnails(ctx, md, req)
	}

	metrics.DerivativeOperationsTotal.WithLabelValues(req.Kind.String(), outcome.State.String()).Inc()
	metrics.DerivativeOperationDuration.WithLabelValues(req.Kind.String()).Observe(time.Since(start).Seconds())
	return outcome
}
