package model

import (
	"errors"
	"time"
)

// Kind identifies a derivative generation operation.
type Kind string

const (
	KindThumbnail Kind = "thumbnail"
	KindTranscode Kind = "transcode"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindThumbnail, KindTranscode:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// ResizeStrategy controls how a thumbnail size constraint is applied.
type ResizeStrategy string

const (
	// StrategyScale bounds the longer side to the constraint and
	// preserves the aspect ratio.
	StrategyScale ResizeStrategy = "scale"

	// StrategySquareCrop scales the shorter side up to the constraint
	// and center-crops to an exact square.
	StrategySquareCrop ResizeStrategy = "square-crop"
)

func (s ResizeStrategy) IsValid() bool {
	switch s {
	case StrategyScale, StrategySquareCrop:
		return true
	default:
		return false
	}
}

// ThumbnailSizeSpec is one named output size in the fanout set.
type ThumbnailSizeSpec struct {
	Name             string
	ConstraintPixels int
	Strategy         ResizeStrategy
}

// DefaultThumbnailSizes returns the standard ordered size set.
// The set is configuration-driven; these are the defaults applied when
// no override is configured.
func DefaultThumbnailSizes() []ThumbnailSizeSpec {
	return []ThumbnailSizeSpec{
		{Name: "large", ConstraintPixels: 800, Strategy: StrategyScale},
		{Name: "medium", ConstraintPixels: 400, Strategy: StrategyScale},
		{Name: "square", ConstraintPixels: 200, Strategy: StrategySquareCrop},
	}
}

var (
	ErrInvalidKind     = errors.New("invalid derivative kind")
	ErrInvalidPosition = errors.New("position percentage must be between 0 and 100")
	ErrEmptyFormat     = errors.New("target format cannot be empty for transcode requests")
)

// DerivativeRequest carries the parameters of one generation operation.
type DerivativeRequest struct {
	Kind Kind

	// PositionPercentage selects where in the video timeline to capture
	// the thumbnail frame. Only meaningful for KindThumbnail.
	PositionPercentage int

	// ForceRegenerate bypasses the existing-artifact check.
	ForceRegenerate bool

	// TargetFormat names the converter profile. Only meaningful for
	// KindTranscode.
	TargetFormat string
}

// Validate checks the request for internal consistency.
func (r DerivativeRequest) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidKind
	}
	if r.Kind == KindThumbnail && (r.PositionPercentage < 0 || r.PositionPercentage > 100) {
		return ErrInvalidPosition
	}
	if r.Kind == KindTranscode && r.TargetFormat == "" {
		return ErrEmptyFormat
	}
	return nil
}

// DerivativeArtifact is one produced output.
type DerivativeArtifact struct {
	// RelativePath is the canonical path under the artifact root.
	RelativePath string
	ByteSize     int64
	CreatedAt    time.Time
}

// Ready reports whether the artifact holds usable bytes.
func (a DerivativeArtifact) Ready() bool {
	return a.ByteSize > 0
}

// State is the terminal state of one orchestrated operation.
type State string

const (
	StateReady   State = "READY"
	StateFailed  State = "FAILED"
	StateSkipped State = "SKIPPED"
)

func (s State) String() string {
	return string(s)
}

// Outcome is the result of one generation operation.
type Outcome struct {
	State State

	// Reason is a human-readable explanation for FAILED and SKIPPED
	// outcomes.
	Reason string

	// FailureKind is the machine-checkable classification of a FAILED
	// outcome (e.g. "unsupported_type", "tool_execution_failed").
	FailureKind string

	// Artifacts lists every output produced by this operation.
	Artifacts []DerivativeArtifact

	// SizeErrors maps thumbnail size names to failure reasons for sizes
	// that could not be produced. A partially failed fanout still
	// reports StateReady when at least one size succeeded.
	SizeErrors map[string]string
}

// Succeeded reports whether the operation reached a non-failed state.
func (o Outcome) Succeeded() bool {
	return o.State == StateReady || o.State == StateSkipped
}

// BulkCounts aggregates per-item outcomes of a bulk run.
type BulkCounts struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Add folds one item outcome into the counts.
func (c *BulkCounts) Add(o Outcome) {
	c.Processed++
	switch o.State {
	case StateReady:
		c.Succeeded++
	case StateSkipped:
		c.Skipped++
	default:
		c.Failed++
	}
}
