package derive

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

// SizeResult is the outcome for one configured thumbnail size.
type SizeResult struct {
	Spec model.ThumbnailSizeSpec
	// Path is the produced file for successful sizes.
	Path string
	Err  error
}

// Fanout produces every configured thumbnail size from one still image.
// Sizes are attempted independently: one size's failure never aborts the
// batch.
type Fanout struct {
	resizer Resizer

	// parallelism caps concurrent resize invocations. Values below 2
	// keep the fanout sequential.
	parallelism int
}

// NewFanout creates a Fanout over the given resizer.
func NewFanout(resizer Resizer, parallelism int) *Fanout {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Fanout{resizer: resizer, parallelism: parallelism}
}

// Run resizes the still into outDir, one file per size spec, named
// {sizeName}.jpg. Results are returned in spec order.
func (f *Fanout) Run(ctx context.Context, stillPath string, specs []model.ThumbnailSizeSpec, outDir string) []SizeResult {
	results := make([]SizeResult, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)

	for i, spec := range specs {
		i, spec := i, spec
		results[i].Spec = spec
		outputPath := filepath.Join(outDir, fmt.Sprintf("%s.jpg", spec.Name))

		g.Go(func() error {
			if err := f.resizer.Resize(gctx, stillPath, outputPath, spec); err != nil {
				results[i].Err = err
				return nil // keep the other sizes going
			}
			results[i].Path = outputPath
			return nil
		})
	}

	// Goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()

	return results
}
