package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/domain"
	apperrors "tribe-notify.io/notify/internal/pkg/errors"
	"tribe-notify.io/notify/internal/transport"
)

// skipReason is the recorded reason when delivery-time re-validation
// rejects a job.
const skipReason = "Recipient muted or ineligible"

// ProcessPendingJobs claims up to batchSize due jobs and works through
// them oldest-due first. Each job is re-validated against the
// eligibility gate before delivery, so mute or settings changes made
// after materialization still take effect.
//
// The claim transitions pending rows to processing atomically, so two
// concurrent sweeps never double-deliver. A failed delivery with
// attempts remaining goes back to pending with an exponentially backed
// off due time; once the attempt budget is spent the job lands in
// failed for good. Per-job errors never abort the batch.
func (e *Engine) ProcessPendingJobs(ctx context.Context, batchSize int) ([]domain.DeliveryResult, error) {
	if batchSize <= 0 {
		batchSize = e.batchSize
	}

	jobs, err := e.store.ClaimDueJobs(ctx, batchSize, e.now())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeProcessingFailed, "claim due jobs", 500)
	}

	results := make([]domain.DeliveryResult, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, e.processJob(ctx, job))
	}

	if len(jobs) > 0 {
		e.log.Info("processed notification batch",
			zap.Int("jobs", len(jobs)))
	}
	return results, nil
}

func (e *Engine) processJob(ctx context.Context, job domain.NotificationJob) domain.DeliveryResult {
	result := domain.DeliveryResult{
		JobID:       job.ID,
		RecipientID: job.RecipientID,
		GroupID:     job.GroupID,
		Channel:     job.Channel,
	}

	if !e.ShouldDeliver(ctx, job.RecipientID, job.GroupID, job.Type, job.Urgency) {
		if err := e.store.MarkJobSkipped(ctx, job.ID, skipReason, e.now()); err != nil {
			e.log.Error("mark job skipped", zap.String("job_id", job.ID), zap.Error(err))
		}
		result.Status = domain.DeliveryMuted
		result.Reason = skipReason
		return result
	}

	messageID, err := e.deliver(ctx, job)
	if err != nil {
		return e.recordFailure(ctx, job, err, result)
	}

	if err := e.store.MarkJobSent(ctx, job.ID, messageID, e.now()); err != nil {
		e.log.Error("mark job sent", zap.String("job_id", job.ID), zap.Error(err))
	}
	result.Status = domain.DeliveryDelivered
	result.MessageID = messageID
	return result
}

// deliver renders the job's message and pushes it through the channel
// transport, returning the provider message ID.
func (e *Engine) deliver(ctx context.Context, job domain.NotificationJob) (string, error) {
	recipient, err := e.store.RecipientByID(ctx, job.RecipientID)
	if err != nil {
		return "", fmt.Errorf("load recipient: %w", err)
	}

	var payload jobPayload
	if len(job.Content) > 0 {
		if err := json.Unmarshal(job.Content, &payload); err != nil {
			return "", fmt.Errorf("decode job payload: %w", err)
		}
	}

	subject, body, err := e.renderer.Render(job.Channel, job.Type, RenderData{
		RecipientName: recipient.Name,
		Content:       payload.Content,
	})
	if err != nil {
		return "", err
	}

	msg := transport.Message{Subject: subject, Body: body}
	switch job.Channel {
	case domain.ChannelEmail:
		msg.To = recipient.Email
	default:
		msg.To = recipient.Phone
	}

	return e.send(ctx, job.Channel, msg)
}

// send pushes one message through the channel transport. With a
// delivery pool configured, the call runs on the pool so concurrent
// sweeps and manual processing runs share one bound on open provider
// connections.
func (e *Engine) send(ctx context.Context, ch domain.Channel, msg transport.Message) (string, error) {
	if e.deliveryPool == nil {
		return e.sender.Send(ctx, ch, msg)
	}

	done := make(chan struct{})
	var messageID string
	var sendErr error
	if err := e.deliveryPool.Submit(ctx, func(ctx context.Context) {
		defer close(done)
		messageID, sendErr = e.sender.Send(ctx, ch, msg)
	}); err != nil {
		return "", err
	}
	select {
	case <-done:
		return messageID, sendErr
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// recordFailure decides between a backed-off retry and the terminal
// failed state based on the job's attempt budget.
func (e *Engine) recordFailure(ctx context.Context, job domain.NotificationJob, cause error, result domain.DeliveryResult) domain.DeliveryResult {
	attempt := job.Attempts + 1
	result.Reason = cause.Error()

	if attempt >= job.MaxAttempts {
		if err := e.store.MarkJobFailed(ctx, job.ID, cause.Error(), e.now()); err != nil {
			e.log.Error("mark job failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		e.log.Warn("notification job exhausted attempts",
			zap.String("job_id", job.ID),
			zap.Int("attempts", attempt),
			zap.Error(cause))
		result.Status = domain.DeliveryFailed
		return result
	}

	nextAttemptAt := e.now().Add(e.retryDelay(job.Attempts))
	if err := e.store.RescheduleJob(ctx, job.ID, cause.Error(), nextAttemptAt); err != nil {
		e.log.Error("reschedule job", zap.String("job_id", job.ID), zap.Error(err))
	}
	e.log.Info("notification job rescheduled",
		zap.String("job_id", job.ID),
		zap.Int("attempt", attempt),
		zap.Time("next_attempt_at", nextAttemptAt),
		zap.Error(cause))
	result.Status = domain.DeliveryScheduled
	return result
}

// retryDelay doubles the base backoff per prior attempt.
func (e *Engine) retryDelay(priorAttempts int) time.Duration {
	delay := e.retryBackoff
	for i := 0; i < priorAttempts; i++ {
		delay *= 2
	}
	return delay
}
