package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/pkg/logger"
)

// DefaultJobRetention is how long terminal notification jobs are kept
// for analytics before cleanup.
const DefaultJobRetention = 90 * 24 * time.Hour

// JobPurger removes terminal notification jobs older than a cutoff.
// Implemented by the repository.
type JobPurger interface {
	DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// JobCleanupArgs is a periodic maintenance job that removes terminal
// notification jobs past the retention window.
type JobCleanupArgs struct{}

// Kind returns the job kind identifier for notification job cleanup.
func (JobCleanupArgs) Kind() string { return "notification_job_cleanup" }

// InsertOpts ensures at most one cleanup job is enqueued within the same day.
func (JobCleanupArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// JobCleanupWorker deletes terminal jobs older than the configured
// retention duration.
type JobCleanupWorker struct {
	river.WorkerDefaults[JobCleanupArgs]
	purger    JobPurger
	retention time.Duration
}

// NewJobCleanupWorker creates a cleanup worker. Non-positive retention
// falls back to the 90-day default.
func NewJobCleanupWorker(purger JobPurger, retention time.Duration) *JobCleanupWorker {
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	return &JobCleanupWorker{purger: purger, retention: retention}
}

// Work removes expired terminal job rows.
func (w *JobCleanupWorker) Work(ctx context.Context, _ *river.Job[JobCleanupArgs]) error {
	if w == nil || w.purger == nil {
		return fmt.Errorf("job cleanup worker is not initialized")
	}

	cutoff := time.Now().UTC().Add(-w.retention)
	deleted, err := w.purger.DeleteTerminalJobsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete terminal jobs before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	logger.Info("notification job cleanup completed",
		zap.Int64("deleted_rows", deleted),
		zap.String("cutoff", cutoff.Format(time.RFC3339)),
		zap.Duration("retention", w.retention),
	)
	return nil
}
