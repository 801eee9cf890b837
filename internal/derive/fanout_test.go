package derive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

func TestFanout_Run(t *testing.T) {
	ctx := context.Background()
	specs := model.DefaultThumbnailSizes()

	t.Run("produces one file per size in spec order", func(t *testing.T) {
		outDir := t.TempDir()
		fanout := NewFanout(&fakeResizer{}, 1)

		results := fanout.Run(ctx, "/tmp/still.jpg", specs, outDir)

		if len(results) != len(specs) {
			t.Fatalf("expected %d results, got %d", len(specs), len(results))
		}
		for i, res := range results {
			if res.Spec.Name != specs[i].Name {
				t.Errorf("result[%d]: got spec %q, expected %q", i, res.Spec.Name, specs[i].Name)
			}
			if res.Err != nil {
				t.Errorf("result[%d]: unexpected error: %v", i, res.Err)
			}
			expected := filepath.Join(outDir, specs[i].Name+".jpg")
			if res.Path != expected {
				t.Errorf("result[%d]: got path %q, expected %q", i, res.Path, expected)
			}
			if _, err := os.Stat(res.Path); err != nil {
				t.Errorf("result[%d]: output missing: %v", i, err)
			}
		}
	})

	t.Run("one failing size does not abort the others", func(t *testing.T) {
		outDir := t.TempDir()
		resizeErr := errors.New("encoder exploded")
		fanout := NewFanout(&fakeResizer{
			resizeFunc: func(_ context.Context, _, outputPath string, spec model.ThumbnailSizeSpec) error {
				if spec.Name == "medium" {
					return resizeErr
				}
				return os.WriteFile(outputPath, []byte("thumb"), 0644)
			},
		}, 1)

		results := fanout.Run(ctx, "/tmp/still.jpg", specs, outDir)

		var failed, succeeded int
		for _, res := range results {
			if res.Err != nil {
				failed++
				if res.Spec.Name != "medium" {
					t.Errorf("unexpected failing size %q", res.Spec.Name)
				}
			} else {
				succeeded++
			}
		}
		if failed != 1 || succeeded != 2 {
			t.Errorf("got %d failed / %d succeeded, expected 1/2", failed, succeeded)
		}
	})

	t.Run("parallel execution yields the same results", func(t *testing.T) {
		outDir := t.TempDir()
		fanout := NewFanout(&fakeResizer{}, 4)

		results := fanout.Run(ctx, "/tmp/still.jpg", specs, outDir)

		for i, res := range results {
			if res.Err != nil {
				t.Errorf("result[%d]: unexpected error: %v", i, res.Err)
			}
			if res.Spec.Name != specs[i].Name {
				t.Errorf("result[%d]: order not preserved", i)
			}
		}
	})

	t.Run("empty spec set yields no results", func(t *testing.T) {
		fanout := NewFanout(&fakeResizer{}, 1)
		results := fanout.Run(ctx, "/tmp/still.jpg", nil, t.TempDir())
		if len(results) != 0 {
			t.Errorf("expected no results, got %d", len(results))
		}
	})
}
