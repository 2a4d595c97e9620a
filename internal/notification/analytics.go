package notification

import (
	"context"
	"math"

	"tribe-notify.io/notify/internal/domain"
	apperrors "tribe-notify.io/notify/internal/pkg/errors"
)

// NotificationAnalytics aggregates job outcomes for a group over the
// trailing window. Unlike resolution, query failures here propagate:
// a wrong report should be visible, not silently defaulted.
func (e *Engine) NotificationAnalytics(ctx context.Context, groupID string, days int) (*domain.AnalyticsSummary, error) {
	if days <= 0 {
		days = 30
	}
	since := e.now().AddDate(0, 0, -days)

	byStatus, byChannel, err := e.store.JobCounts(ctx, groupID, since)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAnalyticsFailed, "aggregate notification jobs", 500)
	}

	summary := &domain.AnalyticsSummary{
		GroupID:    groupID,
		WindowDays: days,
		Sent:       byStatus[domain.JobStatusSent],
		Failed:     byStatus[domain.JobStatusFailed],
		Skipped:    byStatus[domain.JobStatusSkipped],
		Pending:    byStatus[domain.JobStatusPending] + byStatus[domain.JobStatusProcessing],
		ByChannel:  byChannel,
	}
	for _, n := range byStatus {
		summary.TotalJobs += n
	}

	// Delivery rate over actual attempts; skipped and pending jobs were
	// never attempted. Zero attempts means rate 0, not NaN.
	attempts := summary.Sent + summary.Failed
	if attempts > 0 {
		rate := float64(summary.Sent) / float64(attempts) * 100
		summary.DeliveryRate = math.Round(rate*100) / 100
	}
	return summary, nil
}
