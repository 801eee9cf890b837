// Package cancel provides cancellation signals polled between bulk-run
// items.
package cancel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hazama-dev/mediaforge/internal/domain/repository"
)

const (
	// cancelKeyPrefix is the prefix for cancellation flag keys in Redis.
	cancelKeyPrefix = "bulkrun:cancel:"

	// flagTTL bounds how long a cancellation flag lingers after the run
	// it targets has finished.
	flagTTL = 24 * time.Hour
)

// RedisSignal implements repository.CancelSignal on a Redis flag, so an
// operator can stop a long bulk run out-of-band. The flag is only
// consulted between items; an in-flight external process is never
// interrupted.
type RedisSignal struct {
	client *redis.Client
}

// Compile-time verification that RedisSignal implements CancelSignal.
var _ repository.CancelSignal = (*RedisSignal)(nil)

// NewRedisSignal creates a Redis-backed cancel signal.
func NewRedisSignal(client *redis.Client) *RedisSignal {
	return &RedisSignal{client: client}
}

// Cancelled reports whether the run's flag has been raised.
func (s *RedisSignal) Cancelled(ctx context.Context, runID string) (bool, error) {
	_, err := s.client.Get(ctx, s.buildKey(runID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return true, nil
}

// Cancel raises the flag for a run.
func (s *RedisSignal) Cancel(ctx context.Context, runID string) error {
	if err := s.client.Set(ctx, s.buildKey(runID), "1", flagTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisSignal) buildKey(runID string) string {
	return cancelKeyPrefix + runID
}

// NoSignal is a CancelSignal that never cancels, for synchronous runs
// with no out-of-band control channel.
type NoSignal struct{}

var _ repository.CancelSignal = NoSignal{}

func (NoSignal) Cancelled(context.Context, string) (bool, error) {
	return false, nil
}
