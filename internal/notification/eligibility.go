package notification

import (
	"context"

	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/domain"
)

// ShouldDeliver asks the combined eligibility gate: mute state,
// frequency preference, and content-type match in one authority call.
// Gate failures degrade per the engine's policy.
func (e *Engine) ShouldDeliver(ctx context.Context, recipientID, groupID string, notificationType domain.NotificationType, urgency domain.Urgency) bool {
	deliver, err := e.store.ShouldDeliver(ctx, recipientID, groupID, notificationType, urgency)
	if err != nil {
		return !e.degradeBlocked("eligibility gate", err,
			zap.String("recipient_id", recipientID),
			zap.String("group_id", groupID),
			zap.String("notification_type", string(notificationType)))
	}
	return deliver
}
