package derive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

// FrameExtractor produces a single still image from a video source.
type FrameExtractor interface {
	// Extract seeks to the timestamp and captures exactly one frame,
	// applying the size spec's filter chain. A spec with zero
	// ConstraintPixels captures the frame at its native dimensions.
	// The returned path is a freshly allocated temporary file owned by
	// the caller.
	Extract(ctx context.Context, sourcePath string, seconds float64, spec model.ThumbnailSizeSpec) (string, error)

	// Available reports whether the extractor binary can be executed.
	Available() bool
}

// FFmpegConfig holds configuration for the ffmpeg-based extractor and
// resizer.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// TempDir is where extracted frames are written.
	TempDir string

	// Timeout bounds one ffmpeg invocation.
	Timeout time.Duration
}

// DefaultFFmpegConfig returns an FFmpegConfig with sensible defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath: "ffmpeg",
		TempDir:    os.TempDir(),
		Timeout:    120 * time.Second,
	}
}

// FFmpegExtractor implements FrameExtractor using the ffmpeg CLI.
type FFmpegExtractor struct {
	config FFmpegConfig
	runner commandRunner
}

var _ FrameExtractor = (*FFmpegExtractor)(nil)

// NewFFmpegExtractor creates a new ffmpeg-based frame extractor.
func NewFFmpegExtractor(cfg FFmpegConfig) *FFmpegExtractor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &FFmpegExtractor{
		config: cfg,
		runner: newExecRunner(cfg.Timeout),
	}
}

// filterChain builds the -vf expression for a size spec.
//
// Square-crop scales the shorter side up to the constraint (forcing the
// aspect ratio to increase so the longer side overshoots) and then
// center-crops to an exact square. Scale bounds the longer side to the
// constraint and preserves the aspect ratio without cropping.
func filterChain(spec model.ThumbnailSizeSpec) string {
	c := spec.ConstraintPixels
	if c <= 0 {
		return ""
	}
	if spec.Strategy == model.StrategySquareCrop {
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", c, c, c, c)
	}
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", c, c)
}

// buildExtractArgs constructs the ffmpeg argument vector for one frame
// capture. Paths are atomic argv entries; nothing passes through a
// shell.
func (e *FFmpegExtractor) buildExtractArgs(sourcePath string, seconds float64, spec model.ThumbnailSizeSpec, outputPath string) []string {
	args := []string{"-y"}
	if seconds > 0 {
		args = append(args, "-ss", seekArg(seconds))
	}
	args = append(args, "-i", sourcePath)
	if filter := filterChain(spec); filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args,
		"-frames:v", "1",
		"-f", "image2",
		outputPath,
	)
	return args
}

// seekArg formats a seek offset with millisecond precision.
func seekArg(seconds float64) string {
	return fmt.Sprintf("%.3f", seconds)
}

// Extract captures one frame at the given offset. When the seek lands
// past the end of the stream (zero exit but no frame written, or a
// decode failure), one retry without a seek captures the first
// decodable frame so short or malformed sources still thumbnail.
func (e *FFmpegExtractor) Extract(ctx context.Context, sourcePath string, seconds float64, spec model.ThumbnailSizeSpec) (string, error) {
	outputPath, err := e.allocOutput()
	if err != nil {
		return "", wrapError(FailWrite, "allocate frame output", err)
	}

	if err := e.runOnce(ctx, sourcePath, seconds, spec, outputPath); err != nil {
		if seconds <= 0 || KindOf(err) == FailToolMissing {
			_ = os.Remove(outputPath)
			return "", err
		}
		if retryErr := e.runOnce(ctx, sourcePath, 0, spec, outputPath); retryErr != nil {
			_ = os.Remove(outputPath)
			return "", err
		}
	}

	return outputPath, nil
}

func (e *FFmpegExtractor) runOnce(ctx context.Context, sourcePath string, seconds float64, spec model.ThumbnailSizeSpec, outputPath string) error {
	args := e.buildExtractArgs(sourcePath, seconds, spec, outputPath)

	res, err := e.runner.Run(ctx, e.config.FFmpegPath, args)
	if err != nil {
		if isToolMissing(err) {
			return wrapError(FailToolMissing, fmt.Sprintf("extractor binary %s not found", e.config.FFmpegPath), err)
		}
		return &Error{
			Kind:     FailToolExecution,
			Detail:   fmt.Sprintf("frame extraction from %s failed", sourcePath),
			ExitCode: res.ExitCode,
			Output:   string(res.Output),
			Err:      err,
		}
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		return &Error{
			Kind:   FailEmptyOutput,
			Detail: fmt.Sprintf("frame extraction from %s produced no bytes", sourcePath),
			Output: string(res.Output),
		}
	}

	return nil
}

// allocOutput creates a fresh temporary file for the extracted frame.
func (e *FFmpegExtractor) allocOutput() (string, error) {
	f, err := os.CreateTemp(e.config.TempDir, "frame-*.jpg")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// Available reports whether the ffmpeg binary is resolvable.
func (e *FFmpegExtractor) Available() bool {
	_, err := e.runner.LookPath(e.config.FFmpegPath)
	return err == nil
}

// IsStillImagePath reports whether the path carries a recognized
// still-image extension. Inputs to the fanout stage that are themselves
// already-produced frames skip any video-specific pre-processing.
func IsStillImagePath(path string) bool {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff":
		return true
	default:
		return false
	}
}
