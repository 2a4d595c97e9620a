// Package jobs defines River Queue job types for background processing:
// the periodic delivery sweep and terminal-job cleanup.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/domain"
	"tribe-notify.io/notify/internal/pkg/logger"
)

// Processor drains due notification jobs. Implemented by the
// notification engine.
type Processor interface {
	ProcessPendingJobs(ctx context.Context, batchSize int) ([]domain.DeliveryResult, error)
}

// DeliverySweepArgs is the periodic job that processes due notification
// jobs through the channel transports.
type DeliverySweepArgs struct{}

// Kind returns the job kind identifier for the delivery sweep.
func (DeliverySweepArgs) Kind() string { return "delivery_sweep" }

// InsertOpts keeps at most one sweep enqueued per minute. Concurrent
// sweeps are safe (the claim is atomic) but pointless.
func (DeliverySweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: time.Minute,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// DeliverySweepWorker runs one batch of due jobs per invocation.
type DeliverySweepWorker struct {
	river.WorkerDefaults[DeliverySweepArgs]
	processor Processor
	batchSize int
}

// NewDeliverySweepWorker creates a sweep worker. Non-positive batch
// size lets the engine apply its configured default.
func NewDeliverySweepWorker(processor Processor, batchSize int) *DeliverySweepWorker {
	return &DeliverySweepWorker{processor: processor, batchSize: batchSize}
}

// Work drains one batch and logs the outcome mix.
func (w *DeliverySweepWorker) Work(ctx context.Context, _ *river.Job[DeliverySweepArgs]) error {
	if w == nil || w.processor == nil {
		return fmt.Errorf("delivery sweep worker is not initialized")
	}

	results, err := w.processor.ProcessPendingJobs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("process pending notification jobs: %w", err)
	}
	if len(results) == 0 {
		return nil
	}

	byStatus := make(map[domain.DeliveryStatus]int)
	for _, r := range results {
		byStatus[r.Status]++
	}
	logger.Info("delivery sweep completed",
		zap.Int("processed", len(results)),
		zap.Int("delivered", byStatus[domain.DeliveryDelivered]),
		zap.Int("muted", byStatus[domain.DeliveryMuted]),
		zap.Int("rescheduled", byStatus[domain.DeliveryScheduled]),
		zap.Int("failed", byStatus[domain.DeliveryFailed]),
	)
	return nil
}
