package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tribe-notify.io/notify/internal/domain"
)

// The database authority functions. The engine treats these as RPCs:
// their internal precedence rules (group-scoped vs global mute, the
// settings fallback order) live in SQL, not here.

// IsRecipientMuted asks the authority whether the recipient is muted,
// group-scoped when groupID is non-empty.
func (s *Store) IsRecipientMuted(ctx context.Context, recipientID, groupID string) (bool, error) {
	var muted bool
	err := s.pool.QueryRow(ctx,
		`SELECT is_recipient_muted($1, $2)`, recipientID, nullIfEmpty(groupID)).Scan(&muted)
	if err != nil {
		return false, fmt.Errorf("rpc is_recipient_muted: %w", err)
	}
	return muted, nil
}

// MuteSettings fetches the mute-scoped option bag for an active mute.
func (s *Store) MuteSettings(ctx context.Context, recipientID, groupID string) (domain.MuteSettings, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT get_mute_settings($1, $2)`, recipientID, nullIfEmpty(groupID)).Scan(&raw)
	if err != nil {
		return domain.MuteSettings{}, fmt.Errorf("rpc get_mute_settings: %w", err)
	}
	var ms domain.MuteSettings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ms); err != nil {
			return domain.MuteSettings{}, fmt.Errorf("decode mute settings: %w", err)
		}
	}
	return ms, nil
}

// EffectiveSettings asks the authority for the fully resolved tri-tier
// settings view.
func (s *Store) EffectiveSettings(ctx context.Context, recipientID, groupID string) (*domain.EffectiveSettings, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT get_effective_notification_settings($1, $2)`, recipientID, groupID).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("rpc get_effective_notification_settings: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var es domain.EffectiveSettings
	if err := json.Unmarshal(raw, &es); err != nil {
		return nil, fmt.Errorf("decode effective settings: %w", err)
	}
	return &es, nil
}

// ShouldDeliver asks the authority's combined delivery gate: mute state,
// frequency preference, and content-type matching in one call.
func (s *Store) ShouldDeliver(ctx context.Context, recipientID, groupID string, notificationType domain.NotificationType, urgency domain.Urgency) (bool, error) {
	var deliver bool
	err := s.pool.QueryRow(ctx,
		`SELECT should_deliver_notification($1, $2, $3, $4)`,
		recipientID, groupID, string(notificationType), string(urgency)).Scan(&deliver)
	if err != nil {
		return false, fmt.Errorf("rpc should_deliver_notification: %w", err)
	}
	return deliver, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
