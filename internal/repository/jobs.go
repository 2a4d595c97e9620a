package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"tribe-notify.io/notify/internal/domain"
	apperrors "tribe-notify.io/notify/internal/pkg/errors"
)

const insertJobSQL = `
INSERT INTO notification_jobs (
	id, recipient_id, group_id, update_id, scheduled_for,
	notification_type, urgency, content, delivery_method, status,
	attempts, max_attempts, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// InsertJobs writes one generation pass's jobs in a single transaction.
// All-or-nothing: any failure rolls back the whole pass.
func (s *Store) InsertJobs(ctx context.Context, jobs []domain.NotificationJob) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin job insert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, j := range jobs {
		batch.Queue(insertJobSQL,
			j.ID, j.RecipientID, j.GroupID, j.UpdateID, j.ScheduledFor,
			string(j.Type), string(j.Urgency), j.Content, string(j.Channel),
			string(j.Status), j.Attempts, j.MaxAttempts, j.CreatedAt)
	}
	br := tx.SendBatch(ctx, batch)
	for range jobs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return apperrors.Wrap(err, apperrors.CodeJobInsertFailed, "insert notification jobs", 500)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close job insert batch: %w", err)
	}
	return tx.Commit(ctx)
}

const claimDueJobsSQL = `
UPDATE notification_jobs
   SET status = 'processing'
 WHERE id IN (
	SELECT id FROM notification_jobs
	 WHERE status = 'pending' AND scheduled_for <= $2
	 ORDER BY scheduled_for
	 LIMIT $1
	 FOR UPDATE SKIP LOCKED
 )
RETURNING id, recipient_id, group_id, update_id, scheduled_for,
          notification_type, urgency, content, delivery_method, status,
          attempts, max_attempts, next_attempt_at,
          COALESCE(message_id, ''), COALESCE(failure_reason, ''),
          processed_at, created_at`

// ClaimDueJobs atomically transitions up to limit due pending jobs to
// processing and returns them, oldest due first. SKIP LOCKED means two
// concurrent sweeps never claim the same job.
func (s *Store) ClaimDueJobs(ctx context.Context, limit int, now time.Time) ([]domain.NotificationJob, error) {
	rows, err := s.pool.Query(ctx, claimDueJobsSQL, limit, now)
	if err != nil {
		return nil, fmt.Errorf("claim due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.NotificationJob
	for rows.Next() {
		var j domain.NotificationJob
		if err := rows.Scan(&j.ID, &j.RecipientID, &j.GroupID, &j.UpdateID,
			&j.ScheduledFor, &j.Type, &j.Urgency, &j.Content, &j.Channel,
			&j.Status, &j.Attempts, &j.MaxAttempts, &j.NextAttemptAt,
			&j.MessageID, &j.FailureReason, &j.ProcessedAt, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Claimed rows come back in arbitrary order from the UPDATE; restore
	// oldest-due-first for the processor's FIFO guarantee.
	sort.SliceStable(jobs, func(a, b int) bool {
		return jobs[a].ScheduledFor.Before(jobs[b].ScheduledFor)
	})
	return jobs, nil
}

const markJobSentSQL = `
UPDATE notification_jobs
   SET status = 'sent', message_id = $2, processed_at = $3, attempts = attempts + 1
 WHERE id = $1 AND status = 'processing'`

// MarkJobSent records a successful delivery. Guarded on processing so a
// stale worker cannot resurrect a terminal job.
func (s *Store) MarkJobSent(ctx context.Context, jobID, messageID string, at time.Time) error {
	return s.transition(ctx, markJobSentSQL, jobID, messageID, at)
}

const markJobSkippedSQL = `
UPDATE notification_jobs
   SET status = 'skipped', failure_reason = $2, processed_at = $3
 WHERE id = $1 AND status = 'processing'`

// MarkJobSkipped records an eligibility-gate skip.
func (s *Store) MarkJobSkipped(ctx context.Context, jobID, reason string, at time.Time) error {
	return s.transition(ctx, markJobSkippedSQL, jobID, reason, at)
}

const markJobFailedSQL = `
UPDATE notification_jobs
   SET status = 'failed', failure_reason = $2, processed_at = $3, attempts = attempts + 1
 WHERE id = $1 AND status = 'processing'`

// MarkJobFailed records a terminal delivery failure.
func (s *Store) MarkJobFailed(ctx context.Context, jobID, reason string, at time.Time) error {
	return s.transition(ctx, markJobFailedSQL, jobID, reason, at)
}

const rescheduleJobSQL = `
UPDATE notification_jobs
   SET status = 'pending', failure_reason = $2, attempts = attempts + 1,
       scheduled_for = $3, next_attempt_at = $3
 WHERE id = $1 AND status = 'processing'`

// RescheduleJob returns a failed-but-retryable job to pending with a
// future due time.
func (s *Store) RescheduleJob(ctx context.Context, jobID, reason string, nextAttemptAt time.Time) error {
	return s.transition(ctx, rescheduleJobSQL, jobID, reason, nextAttemptAt)
}

func (s *Store) transition(ctx context.Context, sql, jobID string, args ...interface{}) error {
	tag, err := s.pool.Exec(ctx, sql, append([]interface{}{jobID}, args...)...)
	if err != nil {
		return fmt.Errorf("job %s transition: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict(apperrors.CodeJobNotFound, "job not in processing state")
	}
	return nil
}

const deleteTerminalJobsSQL = `
DELETE FROM notification_jobs
 WHERE status IN ('sent', 'failed', 'skipped') AND created_at < $1`

// DeleteTerminalJobsBefore removes terminal jobs older than the cutoff
// and returns how many rows went away.
func (s *Store) DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteTerminalJobsSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete terminal jobs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
