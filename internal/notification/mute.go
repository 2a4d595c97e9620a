package notification

import (
	"context"

	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/domain"
)

// IsRecipientMuted reports whether delivery to the recipient is blocked
// by an active mute. groupID may be empty for a global-only check.
//
// The base determination is delegated to the database authority. An
// urgent message breaks through an active mute unless the mute's
// settings explicitly set preserve_urgent to false. Authority failures
// degrade per the engine's policy instead of propagating.
func (e *Engine) IsRecipientMuted(ctx context.Context, recipientID, groupID string, urgency domain.Urgency) bool {
	muted, err := e.store.IsRecipientMuted(ctx, recipientID, groupID)
	if err != nil {
		return e.degradeBlocked("mute check", err,
			zap.String("recipient_id", recipientID),
			zap.String("group_id", groupID))
	}
	if !muted {
		return false
	}
	if urgency != domain.UrgencyUrgent {
		return true
	}

	ms, err := e.store.MuteSettings(ctx, recipientID, groupID)
	if err != nil {
		return e.degradeBlocked("mute settings fetch", err,
			zap.String("recipient_id", recipientID),
			zap.String("group_id", groupID))
	}
	if ms.PreservesUrgent() {
		e.log.Debug("urgent override bypassing mute",
			zap.String("recipient_id", recipientID),
			zap.String("group_id", groupID))
		return false
	}
	return true
}
