package derive

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prober determines the duration of a media file.
type Prober interface {
	// Duration returns the duration in seconds. A missing, empty or
	// non-numeric probe result is a failure, never a zero duration.
	Duration(ctx context.Context, path string) (float64, error)

	// Available reports whether the probe binary can be executed.
	Available() bool
}

// FFprobeConfig holds configuration for the ffprobe-based Prober.
type FFprobeConfig struct {
	// FFprobePath is the path to the ffprobe binary.
	// If empty, "ffprobe" will be used (assumes it's in PATH).
	FFprobePath string

	// Timeout bounds one probe invocation.
	Timeout time.Duration
}

// DefaultFFprobeConfig returns an FFprobeConfig with sensible defaults.
func DefaultFFprobeConfig() FFprobeConfig {
	return FFprobeConfig{
		FFprobePath: "ffprobe",
		Timeout:     30 * time.Second,
	}
}

// FFprobeProber implements Prober using the ffprobe CLI.
type FFprobeProber struct {
	config FFprobeConfig
	runner commandRunner
}

var _ Prober = (*FFprobeProber)(nil)

// NewFFprobeProber creates a new ffprobe-based prober.
func NewFFprobeProber(cfg FFprobeConfig) *FFprobeProber {
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	return &FFprobeProber{
		config: cfg,
		runner: newExecRunner(cfg.Timeout),
	}
}

// buildProbeArgs constructs the ffprobe argument vector: quiet mode,
// format duration only, no pretty-printing.
func (p *FFprobeProber) buildProbeArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	}
}

// Duration probes the file's duration in seconds.
func (p *FFprobeProber) Duration(ctx context.Context, path string) (float64, error) {
	res, err := p.runner.Run(ctx, p.config.FFprobePath, p.buildProbeArgs(path))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, wrapError(FailProbeTimeout, fmt.Sprintf("probe of %s exceeded %s", path, p.config.Timeout), err)
		}
		if isToolMissing(err) {
			return 0, wrapError(FailToolMissing, fmt.Sprintf("probe binary %s not found", p.config.FFprobePath), err)
		}
		// A probe that cannot read the container means the duration is
		// unknown, not that the whole operation must fail.
		return 0, &Error{
			Kind:     FailProbeUnavailable,
			Detail:   fmt.Sprintf("probe of %s failed", path),
			ExitCode: res.ExitCode,
			Output:   string(res.Output),
			Err:      err,
		}
	}

	token := strings.TrimSpace(string(res.Output))
	if token == "" || strings.EqualFold(token, "N/A") {
		return 0, newError(FailProbeUnavailable, fmt.Sprintf("no duration reported for %s", path))
	}

	seconds, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, wrapError(FailUnparseable, fmt.Sprintf("duration %q is not numeric", token), err)
	}
	if seconds <= 0 {
		return 0, newError(FailProbeUnavailable, fmt.Sprintf("non-positive duration %q for %s", token, path))
	}

	return seconds, nil
}

// Available reports whether the ffprobe binary is resolvable.
func (p *FFprobeProber) Available() bool {
	_, err := p.runner.LookPath(p.config.FFprobePath)
	return err == nil
}
