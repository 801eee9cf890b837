package derive

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/hazama-dev/mediaforge/internal/infrastructure/metrics"
)

// runResult carries the outcome of one external tool invocation.
type runResult struct {
	// Output is the combined stdout/stderr of the process.
	Output []byte
	// ExitCode is the process exit code. Zero on success.
	ExitCode int
}

// commandRunner executes external tools. Arguments are always passed as
// an argv vector, never through a shell, so attacker-controlled
// filenames cannot inject commands. The abstraction exists for test
// injection.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string) (runResult, error)
	LookPath(name string) (string, error)
}

// execRunner runs tools via os/exec with a bounded per-invocation
// timeout. The subprocess is forcibly terminated on expiry.
type execRunner struct {
	timeout time.Duration
}

const defaultRunTimeout = 120 * time.Second

func newExecRunner(timeout time.Duration) execRunner {
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	return execRunner{timeout: timeout}
}

func (r execRunner) Run(ctx context.Context, name string, args []string) (runResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	metrics.ExternalToolInvocationsTotal.WithLabelValues(name, status).Inc()

	res := runResult{Output: out}
	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	}
	return res, err
}

func (r execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// isToolMissing reports whether a run error means the binary itself
// could not be found or executed.
func isToolMissing(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr)
}
