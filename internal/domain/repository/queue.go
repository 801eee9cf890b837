package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

// DerivativeTask represents one background derivative generation job.
type DerivativeTask struct {
	MediaID            uuid.UUID  `json:"media_id"`
	Kind               model.Kind `json:"kind"`
	TargetFormat       string     `json:"target_format,omitempty"`
	PositionPercentage int        `json:"position_percentage,omitempty"`
	ForceRegenerate    bool       `json:"force_regenerate"`
	RetryCount         int        `json:"retry_count"`
}

// MessageQueue defines the interface for background task dispatch.
// Implementations should be provided by the infrastructure layer.
type MessageQueue interface {
	// PublishDerivativeTask sends a generation task to the queue.
	// Used by the API server to defer expensive work to the worker.
	PublishDerivativeTask(ctx context.Context, task DerivativeTask) error

	// ConsumeDerivativeTasks starts consuming tasks from the queue.
	// The handler is called for each received task. Returns when the
	// context is cancelled or the channel is closed.
	ConsumeDerivativeTasks(ctx context.Context, handler func(task DerivativeTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
