package repository

import "context"

// CancelSignal is polled between bulk-run items to support cooperative
// cancellation. An in-flight external process is never interrupted; only
// the decision to start the next item is affected.
type CancelSignal interface {
	// Cancelled reports whether the identified run has been asked to
	// stop.
	Cancelled(ctx context.Context, runID string) (bool, error)
}
