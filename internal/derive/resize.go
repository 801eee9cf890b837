package derive

import (
	"context"
	"fmt"
	"os"

	"github.com/disintegration/imaging"

	// Decoders for still-image inputs beyond JPEG.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

// Resizer produces one sized derivative from an already-extracted still
// image. The external-tool and in-process implementations must produce
// pixel-equivalent output for a given size spec.
type Resizer interface {
	Resize(ctx context.Context, stillPath, outputPath string, spec model.ThumbnailSizeSpec) error
}

// FFmpegResizer resizes stills through the same ffmpeg filter chains
// used for frame extraction, so resizing from a still and extracting a
// sized frame from the source agree pixel for pixel.
type FFmpegResizer struct {
	config FFmpegConfig
	runner commandRunner
}

var _ Resizer = (*FFmpegResizer)(nil)

// NewFFmpegResizer creates a new ffmpeg-based still resizer.
func NewFFmpegResizer(cfg FFmpegConfig) *FFmpegResizer {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpegResizer{
		config: cfg,
		runner: newExecRunner(cfg.Timeout),
	}
}

func (r *FFmpegResizer) buildResizeArgs(stillPath, outputPath string, spec model.ThumbnailSizeSpec) []string {
	args := []string{"-y", "-i", stillPath}
	if filter := filterChain(spec); filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args, "-frames:v", "1", "-f", "image2", outputPath)
	return args
}

func (r *FFmpegResizer) Resize(ctx context.Context, stillPath, outputPath string, spec model.ThumbnailSizeSpec) error {
	res, err := r.runner.Run(ctx, r.config.FFmpegPath, r.buildResizeArgs(stillPath, outputPath, spec))
	if err != nil {
		if isToolMissing(err) {
			return wrapError(FailToolMissing, fmt.Sprintf("resize binary %s not found", r.config.FFmpegPath), err)
		}
		return &Error{
			Kind:     FailToolExecution,
			Detail:   fmt.Sprintf("resize of %s to %q failed", stillPath, spec.Name),
			ExitCode: res.ExitCode,
			Output:   string(res.Output),
			Err:      err,
		}
	}

	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		return &Error{
			Kind:   FailEmptyOutput,
			Detail: fmt.Sprintf("resize of %s to %q produced no bytes", stillPath, spec.Name),
			Output: string(res.Output),
		}
	}
	return nil
}

// ImagingResizer resizes stills in-process. It avoids a subprocess per
// size when the input is already a decodable still image.
type ImagingResizer struct {
	// Quality is the JPEG encode quality (1-100).
	Quality int
}

var _ Resizer = (*ImagingResizer)(nil)

const defaultJPEGQuality = 85

// NewImagingResizer creates an in-process resizer.
func NewImagingResizer() *ImagingResizer {
	return &ImagingResizer{Quality: defaultJPEGQuality}
}

func (r *ImagingResizer) Resize(ctx context.Context, stillPath, outputPath string, spec model.ThumbnailSizeSpec) error {
	if err := ctx.Err(); err != nil {
		return wrapError(FailToolExecution, "resize cancelled", err)
	}

	img, err := imaging.Open(stillPath, imaging.AutoOrientation(true))
	if err != nil {
		return wrapError(FailUnparseable, fmt.Sprintf("decode %s", stillPath), err)
	}

	c := spec.ConstraintPixels
	var thumb = img
	if c > 0 {
		if spec.Strategy == model.StrategySquareCrop {
			thumb = imaging.Fill(img, c, c, imaging.Center, imaging.Lanczos)
		} else {
			thumb = imaging.Fit(img, c, c, imaging.Lanczos)
		}
	}

	quality := r.Quality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}
	if err := imaging.Save(thumb, outputPath, imaging.JPEGQuality(quality)); err != nil {
		return wrapError(FailWrite, fmt.Sprintf("encode %s", outputPath), err)
	}
	return nil
}
