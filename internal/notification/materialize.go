package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/domain"
)

// UpdateContent is the caller-supplied payload describing one update.
// The fields feed the channel message templates.
type UpdateContent struct {
	ChildName  string `json:"child_name,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Body       string `json:"body,omitempty"`
	MediaCount int    `json:"media_count,omitempty"`
}

// jobPayload is what lands in the job's content column: the update
// content plus a snapshot of the settings resolved at creation time.
type jobPayload struct {
	Content  UpdateContent            `json:"content"`
	Settings domain.EffectiveSettings `json:"settings"`
}

// CreateRequest carries one materialization pass: one update, one
// group. Zero Type means immediate; zero Urgency means normal.
type CreateRequest struct {
	UpdateID string
	GroupID  string
	ParentID string
	Content  UpdateContent

	Type    domain.NotificationType
	Urgency domain.Urgency

	// ScheduleDelay shifts delivery of non-digest jobs into the future.
	ScheduleDelay time.Duration
}

// CreateNotificationJobs materializes delivery jobs for every eligible
// recipient/channel pair of the group and persists them in one
// all-or-nothing batch. The returned slice is what was inserted.
//
// An immediate request for a recipient whose resolved frequency batches
// (daily or weekly digest) is demoted to that recipient's digest
// window rather than delivered right away.
func (e *Engine) CreateNotificationJobs(ctx context.Context, req CreateRequest) ([]domain.NotificationJob, error) {
	if req.Type == "" {
		req.Type = domain.TypeImmediate
	}
	if req.Urgency == "" {
		req.Urgency = domain.UrgencyNormal
	}

	recipients, err := e.store.GroupRecipients(ctx, req.GroupID, req.ParentID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients for group %s: %w", req.GroupID, err)
	}

	now := e.now()
	var jobs []domain.NotificationJob
	for _, r := range recipients {
		if !e.ShouldDeliver(ctx, r.ID, req.GroupID, req.Type, req.Urgency) {
			e.log.Debug("recipient ineligible, no job created",
				zap.String("recipient_id", r.ID),
				zap.String("update_id", req.UpdateID))
			continue
		}

		settings := e.EffectiveSettings(ctx, r.ID, req.GroupID)

		scheduledFor := now.Add(req.ScheduleDelay)
		if req.Type == domain.TypeImmediate && settings.Frequency != domain.FrequencyEveryUpdate {
			scheduledFor = e.DigestDeliveryTime(settings.Frequency)
		}

		payload, err := json.Marshal(jobPayload{Content: req.Content, Settings: settings})
		if err != nil {
			return nil, fmt.Errorf("encode job payload: %w", err)
		}

		for _, ch := range settings.Channels {
			if !r.CanReceive(ch) {
				e.log.Debug("channel not viable for recipient",
					zap.String("recipient_id", r.ID),
					zap.String("channel", string(ch)))
				continue
			}
			jobs = append(jobs, domain.NotificationJob{
				ID:           domain.JobID(req.UpdateID, r.ID, ch, now),
				RecipientID:  r.ID,
				GroupID:      req.GroupID,
				UpdateID:     req.UpdateID,
				ScheduledFor: scheduledFor,
				Type:         req.Type,
				Urgency:      req.Urgency,
				Content:      payload,
				Channel:      ch,
				Status:       domain.JobStatusPending,
				MaxAttempts:  e.maxAttempts,
				CreatedAt:    now,
			})
		}
	}

	if err := e.store.InsertJobs(ctx, jobs); err != nil {
		return nil, err
	}

	e.log.Info("notification jobs created",
		zap.String("update_id", req.UpdateID),
		zap.String("group_id", req.GroupID),
		zap.Int("jobs", len(jobs)),
		zap.Int("recipients", len(recipients)))
	return jobs, nil
}
