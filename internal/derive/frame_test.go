package derive

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

func TestFilterChain(t *testing.T) {
	tests := []struct {
		name     string
		spec     model.ThumbnailSizeSpec
		expected string
	}{
		{
			"square-crop",
			model.ThumbnailSizeSpec{Name: "square", ConstraintPixels: 200, Strategy: model.StrategySquareCrop},
			"scale=200:200:force_original_aspect_ratio=increase,crop=200:200",
		},
		{
			"scale",
			model.ThumbnailSizeSpec{Name: "large", ConstraintPixels: 800, Strategy: model.StrategyScale},
			"scale=800:800:force_original_aspect_ratio=decrease",
		},
		{
			"no constraint yields no filter",
			model.ThumbnailSizeSpec{},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filterChain(tt.spec); got != tt.expected {
				t.Errorf("got %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestFFmpegExtractor_BuildExtractArgs(t *testing.T) {
	extractor := NewFFmpegExtractor(DefaultFFmpegConfig())
	spec := model.ThumbnailSizeSpec{Name: "large", ConstraintPixels: 800, Strategy: model.StrategyScale}

	t.Run("with seek and filter", func(t *testing.T) {
		args := extractor.buildExtractArgs("/in.mp4", 2.5, spec, "/out.jpg")

		expectedArgs := []string{
			"-y",
			"-ss", "2.500",
			"-i", "/in.mp4",
			"-vf", "scale=800:800:force_original_aspect_ratio=decrease",
			"-frames:v", "1",
			"-f", "image2",
			"/out.jpg",
		}

		if len(args) != len(expectedArgs) {
			t.Fatalf("arg count mismatch: got %d, expected %d", len(args), len(expectedArgs))
		}
		for i, expected := range expectedArgs {
			if args[i] != expected {
				t.Errorf("arg[%d]: got %q, expected %q", i, args[i], expected)
			}
		}
	})

	t.Run("zero seek omits -ss", func(t *testing.T) {
		args := extractor.buildExtractArgs("/in.mp4", 0, model.ThumbnailSizeSpec{}, "/out.jpg")

		for _, a := range args {
			if a == "-ss" {
				t.Error("unexpected -ss for zero offset")
			}
			if a == "-vf" {
				t.Error("unexpected -vf for empty spec")
			}
		}
	})
}

func TestFFmpegExtractor_HostileFilenameStaysOneArg(t *testing.T) {
	hostile := `/media/"; rm -rf ~; ".mp4`

	runner := &fakeRunner{
		runFunc: func(_ context.Context, _ string, args []string) (runResult, error) {
			return runResult{}, os.WriteFile(args[len(args)-1], []byte("frame"), 0644)
		},
	}
	extractor := NewFFmpegExtractor(FFmpegConfig{TempDir: t.TempDir()})
	extractor.runner = runner

	out, err := extractor.Extract(context.Background(), hostile, 5, model.ThumbnailSizeSpec{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer os.Remove(out)

	found := false
	for _, a := range runner.call(0).args {
		if a == hostile {
			found = true
		}
	}
	if !found {
		t.Errorf("hostile path not passed as a single argument: %v", runner.call(0).args)
	}
}

func TestFFmpegExtractor_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("captures a frame at the requested offset", func(t *testing.T) {
		runner := &fakeRunner{
			runFunc: func(_ context.Context, _ string, args []string) (runResult, error) {
				return runResult{}, os.WriteFile(args[len(args)-1], []byte("frame"), 0644)
			},
		}
		extractor := NewFFmpegExtractor(FFmpegConfig{TempDir: t.TempDir()})
		extractor.runner = runner

		out, err := extractor.Extract(ctx, "/in.mp4", 12.5, model.ThumbnailSizeSpec{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer os.Remove(out)

		if runner.callCount() != 1 {
			t.Fatalf("expected 1 invocation, got %d", runner.callCount())
		}
		args := runner.call(0).args
		if args[1] != "-ss" || args[2] != "12.500" {
			t.Errorf("seek args: got %v", args[:3])
		}
	})

	t.Run("retries without seek when the seeked capture fails", func(t *testing.T) {
		runner := &fakeRunner{}
		runner.runFunc = func(_ context.Context, _ string, args []string) (runResult, error) {
			if runner.callCount() == 1 {
				return runResult{ExitCode: 1, Output: []byte("past end of stream")}, errors.New("exit status 1")
			}
			return runResult{}, os.WriteFile(args[len(args)-1], []byte("frame"), 0644)
		}
		extractor := NewFFmpegExtractor(FFmpegConfig{TempDir: t.TempDir()})
		extractor.runner = runner

		out, err := extractor.Extract(ctx, "/short.mp4", 30, model.ThumbnailSizeSpec{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer os.Remove(out)

		if runner.callCount() != 2 {
			t.Fatalf("expected 2 invocations, got %d", runner.callCount())
		}
		for _, a := range runner.call(1).args {
			if a == "-ss" {
				t.Error("retry must not seek")
			}
		}
	})

	t.Run("retries when the seeked capture writes no bytes", func(t *testing.T) {
		runner := &fakeRunner{}
		runner.runFunc = func(_ context.Context, _ string, args []string) (runResult, error) {
			if runner.callCount() == 1 {
				// Zero exit but nothing written: seek past end of stream.
				return runResult{}, nil
			}
			return runResult{}, os.WriteFile(args[len(args)-1], []byte("frame"), 0644)
		}
		extractor := NewFFmpegExtractor(FFmpegConfig{TempDir: t.TempDir()})
		extractor.runner = runner

		out, err := extractor.Extract(ctx, "/short.mp4", 30, model.ThumbnailSizeSpec{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer os.Remove(out)

		if runner.callCount() != 2 {
			t.Fatalf("expected 2 invocations, got %d", runner.callCount())
		}
	})

	t.Run("reports the original failure when the retry also fails", func(t *testing.T) {
		runner := &fakeRunner{
			runFunc: func(context.Context, string, []string) (runResult, error) {
				return runResult{ExitCode: 1, Output: []byte("decode error")}, errors.New("exit status 1")
			},
		}
		extractor := NewFFmpegExtractor(FFmpegConfig{TempDir: t.TempDir()})
		extractor.runner = runner

		_, err := extractor.Extract(ctx, "/bad.mp4", 30, model.ThumbnailSizeSpec{})
		if KindOf(err) != FailToolExecution {
			t.Errorf("got kind %q, expected %q", KindOf(err), FailToolExecution)
		}
		if runner.callCount() != 2 {
			t.Errorf("expected 2 invocations, got %d", runner.callCount())
		}
	})

	t.Run("no retry for zero offset", func(t *testing.T) {
		runner := &fakeRunner{
			runFunc: func(context.Context, string, []string) (runResult, error) {
				return runResult{ExitCode: 1}, errors.New("exit status 1")
			},
		}
		extractor := NewFFmpegExtractor(FFmpegConfig{TempDir: t.TempDir()})
		extractor.runner = runner

		_, err := extractor.Extract(ctx, "/bad.mp4", 0, model.ThumbnailSizeSpec{})
		if err == nil {
			t.Fatal("expected error")
		}
		if runner.callCount() != 1 {
			t.Errorf("expected 1 invocation, got %d", runner.callCount())
		}
	})

	t.Run("no retry when the binary is missing", func(t *testing.T) {
		runner := &fakeRunner{
			runFunc: func(context.Context, string, []string) (runResult, error) {
				return runResult{}, &exec.Error{Name: "ffmpeg", Err: exec.ErrNotFound}
			},
		}
		extractor := NewFFmpegExtractor(FFmpegConfig{TempDir: t.TempDir()})
		extractor.runner = runner

		_, err := extractor.Extract(ctx, "/in.mp4", 10, model.ThumbnailSizeSpec{})
		if KindOf(err) != FailToolMissing {
			t.Errorf("got kind %q, expected %q", KindOf(err), FailToolMissing)
		}
		if runner.callCount() != 1 {
			t.Errorf("expected 1 invocation, got %d", runner.callCount())
		}
	})
}

func TestIsStillImagePath(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/tmp/frame.jpg", true},
		{"/tmp/frame.jpeg", true},
		{"/tmp/pic.png", true},
		{"/tmp/anim.gif", true},
		{"/tmp/raw.bmp", true},
		{"/tmp/modern.webp", true},
		{"/tmp/scan.tiff", true},
		{"/tmp/video.mp4", false},
		{"/tmp/noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsStillImagePath(tt.path); got != tt.expected {
				t.Errorf("got %v, expected %v", got, tt.expected)
			}
		})
	}
}
