package derive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
)

// DefaultFallbackSeekSeconds is the frame capture offset used when the
// duration probe cannot determine a duration.
const DefaultFallbackSeekSeconds = 10.0

// StillSourceKind classifies where the fanout's input still comes from.
type StillSourceKind int

const (
	// StillSourceRawVideo requires probe + frame extraction first.
	StillSourceRawVideo StillSourceKind = iota
	// StillSourceExtractedFrame is an already-produced frame; resized
	// directly with no video pre-processing.
	StillSourceExtractedFrame
	// StillSourceGenericImage is any other still image input.
	StillSourceGenericImage
)

// DetectStillSource determines the still source kind once at entry;
// downstream stages branch on it explicitly.
func DetectStillSource(md *model.MediaDescriptor) StillSourceKind {
	if md.IsVideo() {
		return StillSourceRawVideo
	}
	if IsStillImagePath(md.SourcePath) {
		return StillSourceExtractedFrame
	}
	return StillSourceGenericImage
}

// OrchestratorConfig holds configuration for the Orchestrator.
type OrchestratorConfig struct {
	// Sizes is the fixed, ordered thumbnail size set. Every generation
	// operation attempts every size.
	Sizes []model.ThumbnailSizeSpec

	// FallbackSeekSeconds is the capture offset when duration is
	// unknown.
	FallbackSeekSeconds float64

	// TempDir hosts intermediate frames and fanout outputs.
	TempDir string

	// FanoutParallelism caps concurrent resize invocations (1 =
	// sequential).
	FanoutParallelism int

	// ThumbnailsEnabled and TranscodesEnabled gate the two operation
	// kinds.
	ThumbnailsEnabled bool
	TranscodesEnabled bool
}

// DefaultOrchestratorConfig returns production-ready defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Sizes:               model.DefaultThumbnailSizes(),
		FallbackSeekSeconds: DefaultFallbackSeekSeconds,
		TempDir:             os.TempDir(),
		FanoutParallelism:   1,
		ThumbnailsEnabled:   true,
		TranscodesEnabled:   true,
	}
}

// Orchestrator sequences Probe -> FrameExtractor -> ThumbnailFanout ->
// ArtifactStore for thumbnails and Converter -> ArtifactStore for
// transcodes, with idempotency checks and a force-regeneration
// override. It never retries a failed operation; retry policy belongs
// to the caller.
type Orchestrator struct {
	prober    Prober
	extractor FrameExtractor
	fanout    *Fanout
	converter Converter
	store     repository.ArtifactStore
	profiles  ProfileTable
	config    OrchestratorConfig
	logger    *slog.Logger
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(
	prober Prober,
	extractor FrameExtractor,
	resizer Resizer,
	converter Converter,
	store repository.ArtifactStore,
	profiles ProfileTable,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if len(cfg.Sizes) == 0 {
		cfg.Sizes = model.DefaultThumbnailSizes()
	}
	if cfg.FallbackSeekSeconds <= 0 {
		cfg.FallbackSeekSeconds = DefaultFallbackSeekSeconds
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Orchestrator{
		prober:    prober,
		extractor: extractor,
		fanout:    NewFanout(resizer, cfg.FanoutParallelism),
		converter: converter,
		store:     store,
		profiles:  profiles,
		config:    cfg,
		logger:    logger,
	}
}

// Sizes returns the configured thumbnail size set.
func (o *Orchestrator) Sizes() []model.ThumbnailSizeSpec {
	return o.config.Sizes
}

// Profiles returns the converter profile table.
func (o *Orchestrator) Profiles() ProfileTable {
	return o.profiles
}

// ToolsAvailable reports whether the probe and extractor binaries can
// both be executed. Used by host-side health and config screens.
func (o *Orchestrator) ToolsAvailable() bool {
	return o.prober.Available() && o.extractor.Available()
}

// GenerateThumbnails produces every configured thumbnail size for the
// media item. Partial fanout failures are reported per size; the
// operation is READY when at least one size was stored.
func (o *Orchestrator) GenerateThumbnails(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome {
	log := o.opLogger(md, model.KindThumbnail)

	if !o.config.ThumbnailsEnabled {
		return model.Outcome{State: model.StateSkipped, Reason: "thumbnail generation is disabled"}
	}

	if !md.IsVideo() && !md.IsImage() {
		log.Warn("unsupported media type", slog.String("media_type", md.MediaType))
		return o.failed(FailUnsupportedType, fmt.Sprintf("media type %s is not eligible for thumbnails", md.MediaType))
	}

	if !req.ForceRegenerate && o.allArtifactsReady(ctx, ExpectedThumbnailPaths(md.StorageID, o.config.Sizes)) {
		log.Info("thumbnails already present, skipping")
		return model.Outcome{State: model.StateSkipped, Reason: "artifacts already present"}
	}

	stillPath, ownStill, err := o.acquireStill(ctx, md, req, log)
	if err != nil {
		log.Error("still acquisition failed", slog.String("error", err.Error()))
		return o.failedFrom(err)
	}
	if ownStill {
		defer func() { _ = os.Remove(stillPath) }()
	}

	fanoutDir, err := os.MkdirTemp(o.config.TempDir, "fanout-")
	if err != nil {
		return o.failedFrom(wrapError(FailWrite, "create fanout directory", err))
	}
	defer func() { _ = os.RemoveAll(fanoutDir) }()

	results := o.fanout.Run(ctx, stillPath, o.config.Sizes, fanoutDir)

	outcome := model.Outcome{SizeErrors: make(map[string]string)}
	for _, res := range results {
		if res.Err != nil {
			log.Error("size generation failed",
				slog.String("size", res.Spec.Name),
				slog.String("error", res.Err.Error()),
			)
			outcome.SizeErrors[res.Spec.Name] = res.Err.Error()
			continue
		}

		artifact, putErr := o.storeFile(ctx, res.Path, ThumbnailPath(md.StorageID, res.Spec.Name))
		if putErr != nil {
			log.Error("size store failed",
				slog.String("size", res.Spec.Name),
				slog.String("error", putErr.Error()),
			)
			outcome.SizeErrors[res.Spec.Name] = putErr.Error()
			continue
		}
		outcome.Artifacts = append(outcome.Artifacts, artifact)
	}

	if len(outcome.Artifacts) == 0 {
		outcome.State = model.StateFailed
		outcome.Reason = "no thumbnail size could be generated"
		return outcome
	}

	outcome.State = model.StateReady
	if len(outcome.SizeErrors) == 0 {
		outcome.SizeErrors = nil
	}
	log.Info("thumbnails generated",
		slog.Int("stored", len(outcome.Artifacts)),
		slog.Int("failed", len(outcome.SizeErrors)),
	)
	return outcome
}

// acquireStill returns the still image the fanout will resize. For raw
// video that means probing and extracting a frame; still-image inputs
// are used directly. The bool reports whether the caller owns (and must
// remove) the returned file.
func (o *Orchestrator) acquireStill(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest, log *slog.Logger) (string, bool, error) {
	switch DetectStillSource(md) {
	case StillSourceExtractedFrame, StillSourceGenericImage:
		return md.SourcePath, false, nil
	}

	seconds := o.config.FallbackSeekSeconds
	duration, err := o.prober.Duration(ctx, md.SourcePath)
	switch KindOf(err) {
	case "":
		seconds = duration * float64(req.PositionPercentage) / 100
	case FailProbeUnavailable, FailToolMissing:
		// Duration unknown is best-effort territory: capture at the
		// fixed fallback offset instead of failing the operation.
		log.Warn("duration probe unavailable, using fallback offset",
			slog.Float64("fallback_seconds", seconds),
			slog.String("error", err.Error()),
		)
	default:
		return "", false, err
	}

	stillPath, err := o.extractor.Extract(ctx, md.SourcePath, seconds, model.ThumbnailSizeSpec{})
	if err != nil {
		return "", false, err
	}
	return stillPath, true, nil
}

// GenerateTranscode converts the source with the named converter
// profile and stores the single resulting rendition.
func (o *Orchestrator) GenerateTranscode(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome {
	log := o.opLogger(md, model.KindTranscode)

	if !o.config.TranscodesEnabled {
		return model.Outcome{State: model.StateSkipped, Reason: "transcode generation is disabled"}
	}

	profile, ok := o.profiles.Lookup(req.TargetFormat)
	if !ok {
		return o.failed(FailUnsupportedType, fmt.Sprintf("unknown converter profile %q", req.TargetFormat))
	}
	if !profile.SupportsMediaType(md.MediaType) {
		log.Warn("unsupported media type for profile",
			slog.String("media_type", md.MediaType),
			slog.String("profile", profile.Key),
		)
		return o.failed(FailUnsupportedType, fmt.Sprintf("media type %s is not eligible for profile %q", md.MediaType, profile.Key))
	}

	target := TranscodePath(profile, md.FilenameStem())
	if !req.ForceRegenerate && o.allArtifactsReady(ctx, []string{target}) {
		log.Info("transcode already present, skipping", slog.String("path", target))
		return model.Outcome{State: model.StateSkipped, Reason: "artifact already present"}
	}

	outputPath := filepath.Join(o.config.TempDir, fmt.Sprintf("transcode-%s.%s", uuid.NewString(), profile.Extension))
	defer func() { _ = os.Remove(outputPath) }()

	if err := o.converter.Convert(ctx, profile, md.SourcePath, outputPath); err != nil {
		log.Error("conversion failed",
			slog.String("profile", profile.Key),
			slog.String("error", err.Error()),
		)
		return o.failedFrom(err)
	}

	artifact, err := o.storeFile(ctx, outputPath, target)
	if err != nil {
		log.Error("transcode store failed", slog.String("error", err.Error()))
		return o.failedFrom(err)
	}

	log.Info("transcode generated",
		slog.String("profile", profile.Key),
		slog.String("path", artifact.RelativePath),
		slog.Int64("bytes", artifact.ByteSize),
	)
	return model.Outcome{State: model.StateReady, Artifacts: []model.DerivativeArtifact{artifact}}
}

// GenerateThumbnailsBulk applies the thumbnail state machine to each
// descriptor independently, continuing past individual failures. The
// cancel signal is polled between items; already-produced artifacts are
// left in place on early stop.
func (o *Orchestrator) GenerateThumbnailsBulk(
	ctx context.Context,
	media []*model.MediaDescriptor,
	req model.DerivativeRequest,
	runID string,
	cancel repository.CancelSignal,
) model.BulkCounts {
	log := o.logger.With(slog.String("run_id", runID))

	var counts model.BulkCounts
	for _, md := range media {
		if ctx.Err() != nil {
			log.Warn("bulk run stopped by context", slog.Int("processed", counts.Processed))
			break
		}
		if cancel != nil {
			cancelled, err := cancel.Cancelled(ctx, runID)
			if err != nil {
				log.Warn("cancel signal check failed", slog.String("error", err.Error()))
			} else if cancelled {
				log.Info("bulk run cancelled", slog.Int("processed", counts.Processed))
				break
			}
		}

		outcome := o.GenerateThumbnails(ctx, md, req)
		counts.Add(outcome)

		if outcome.State == model.StateFailed {
			log.Error("bulk item failed",
				slog.String("media_id", md.ID.String()),
				slog.String("storage_id", md.StorageID),
				slog.String("reason", outcome.Reason),
			)
		} else {
			log.Info("bulk item done",
				slog.String("media_id", md.ID.String()),
				slog.String("state", outcome.State.String()),
			)
		}
	}

	log.Info("bulk run finished",
		slog.Int("processed", counts.Processed),
		slog.Int("succeeded", counts.Succeeded),
		slog.Int("failed", counts.Failed),
		slog.Int("skipped", counts.Skipped),
	)
	return counts
}

// allArtifactsReady reports whether every expected path already holds a
// non-empty artifact. Partial sets trigger full regeneration so a stale
// subset is never served next to a fresh one.
func (o *Orchestrator) allArtifactsReady(ctx context.Context, paths []string) bool {
	for _, p := range paths {
		size, err := o.store.Size(ctx, p)
		if err != nil || size == 0 {
			return false
		}
	}
	return true
}

// storeFile moves a produced temp file into the artifact store at its
// canonical path.
func (o *Orchestrator) storeFile(ctx context.Context, localPath, relativePath string) (model.DerivativeArtifact, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return model.DerivativeArtifact{}, wrapError(FailWrite, fmt.Sprintf("open %s", localPath), err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return model.DerivativeArtifact{}, wrapError(FailWrite, fmt.Sprintf("stat %s", localPath), err)
	}
	if info.Size() == 0 {
		return model.DerivativeArtifact{}, newError(FailEmptyOutput, fmt.Sprintf("%s holds no bytes", localPath))
	}

	artifact, err := o.store.Put(ctx, relativePath, f, info.Size())
	if err != nil {
		return model.DerivativeArtifact{}, wrapError(FailWrite, fmt.Sprintf("store %s", relativePath), err)
	}
	return artifact, nil
}

// opLogger attaches a correlation id for one operation's call chain.
func (o *Orchestrator) opLogger(md *model.MediaDescriptor, kind model.Kind) *slog.Logger {
	return o.logger.With(
		slog.String("op_id", uuid.NewString()),
		slog.String("media_id", md.ID.String()),
		slog.String("storage_id", md.StorageID),
		slog.String("kind", kind.String()),
	)
}

func (o *Orchestrator) failed(kind FailureKind, reason string) model.Outcome {
	return model.Outcome{State: model.StateFailed, FailureKind: string(kind), Reason: reason}
}

func (o *Orchestrator) failedFrom(err error) model.Outcome {
	reason := err.Error()
	if out := OutputOf(err); out != "" {
		// Tool output can be large; keep the tail where ffmpeg puts
		// the actual error.
		const maxOutput = 512
		if len(out) > maxOutput {
			out = out[len(out)-maxOutput:]
		}
		reason = fmt.Sprintf("%s (tool output: %s)", reason, strings.TrimSpace(out))
	}
	return model.Outcome{State: model.StateFailed, FailureKind: string(KindOf(err)), Reason: reason}
}
