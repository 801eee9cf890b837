// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediaforge"

var (
	// DerivativeOperationsTotal tracks orchestrated generation operations.
	// Labels:
	//   - kind: thumbnail, transcode
	//   - state: READY, FAILED, SKIPPED
	DerivativeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derivative_operations_total",
			Help:      "Total number of derivative generation operations",
		},
		[]string{"kind", "state"},
	)

	// DerivativeOperationDuration observes wall time per operation.
	// Labels:
	//   - kind: thumbnail, transcode
	DerivativeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "derivative_operation_duration_seconds",
			Help:      "Duration of derivative generation operations",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 180, 600},
		},
		[]string{"kind"},
	)

	// BulkItemsTotal tracks per-item outcomes of bulk runs.
	// Labels:
	//   - state: READY, FAILED, SKIPPED
	BulkItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_items_total",
			Help:      "Total number of bulk-run items by outcome",
		},
		[]string{"state"},
	)

	// ExternalToolInvocationsTotal tracks subprocess runs.
	// Labels:
	//   - tool: binary name as invoked (ffmpeg, ffprobe, gs, ...)
	//   - status: success, error
	ExternalToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_tool_invocations_total",
			Help:      "Total number of external tool invocations",
		},
		[]string{"tool", "status"},
	)

	// QueueTasksTotal tracks background task publication and consumption.
	// Labels:
	//   - direction: published, consumed
	//   - status: success, error
	QueueTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_tasks_total",
			Help:      "Total number of derivative tasks through the queue",
		},
		[]string{"direction", "status"},
	)
)

// Queue direction constants.
const (
	QueuePublished = "published"
	QueueConsumed  = "consumed"
)

// Status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
