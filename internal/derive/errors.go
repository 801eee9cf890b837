// Package derive implements the media derivative generation pipeline:
// duration probing, frame extraction, thumbnail fanout, canonical naming
// and transcode profile execution, sequenced by the Orchestrator.
package derive

import (
	"errors"
	"fmt"
)

// FailureKind classifies a derivative generation failure.
type FailureKind string

const (
	// FailUnsupportedType means the input MIME type is not eligible for
	// the requested operation. Caller error, no retry.
	FailUnsupportedType FailureKind = "unsupported_type"

	// FailToolMissing means a configured external binary is absent or
	// not executable. Environment error, surfaced to the operator.
	FailToolMissing FailureKind = "tool_missing"

	// FailToolExecution means an external process exited non-zero.
	// Carries the exit code and captured combined output.
	FailToolExecution FailureKind = "tool_execution_failed"

	// FailEmptyOutput means the process succeeded but produced no
	// usable bytes.
	FailEmptyOutput FailureKind = "empty_output"

	// FailProbeUnavailable means the duration probe could not determine
	// a duration. Non-fatal: callers fall back to a fixed seek offset.
	FailProbeUnavailable FailureKind = "probe_unavailable"

	// FailProbeTimeout means the duration probe exceeded its execution
	// deadline. Fatal to the thumbnail operation.
	FailProbeTimeout FailureKind = "probe_timeout"

	// FailUnparseable means the probe produced output that is not a
	// numeric duration. Fatal to the thumbnail operation.
	FailUnparseable FailureKind = "unparseable"

	// FailWrite means the artifact store could not persist the output.
	FailWrite FailureKind = "write_error"
)

// Error is a structured pipeline failure with a machine-checkable kind
// and a human-readable reason suitable for logs and API responses.
type Error struct {
	Kind     FailureKind
	Detail   string
	ExitCode int
	// Output holds the captured combined stdout/stderr of the failed
	// tool invocation, for diagnostics.
	Output string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind FailureKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func wrapError(kind FailureKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the failure kind from an error chain.
// Returns an empty kind for nil or unclassified errors.
func KindOf(err error) FailureKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// OutputOf extracts the captured tool output from an error chain.
func OutputOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Output
	}
	return ""
}
