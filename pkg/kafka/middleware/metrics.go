package kafka_middleware

import (
	"context"
	"medbook/pkg/kafka"
	"sync/atomic"
	"time"
)

// PublishStats counts publish outcomes of one producer.
type PublishStats struct {
	published     atomic.Int64
	failed        atomic.Int64
	totalDuration atomic.Int64 // nanoseconds
}

type PublishSnapshot struct {
	Published   int64
	Failed      int64
	AvgDuration time.Duration
}

func (s *PublishStats) Snapshot() PublishSnapshot {
	published := s.published.Load()
	failed := s.failed.Load()

	snap := PublishSnapshot{Published: published, Failed: failed}
	if n := published + failed; n > 0 {
		snap.AvgDuration = time.Duration(s.totalDuration.Load() / n)
	}
	return snap
}

// MetricsProducerMiddleware records every publish in stats.
func MetricsProducerMiddleware(stats *PublishStats) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		stats.totalDuration.Add(int64(time.Since(start)))
		if err != nil {
			stats.failed.Add(1)
		} else {
			stats.published.Add(1)
		}
		return err
	}
}
