package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tribe-notify.io/notify/internal/domain"
	apperrors "tribe-notify.io/notify/internal/pkg/errors"
)

const groupRecipientsSQL = `
SELECT r.id, r.parent_id, r.name, COALESCE(r.email, ''), COALESCE(r.phone, ''),
       COALESCE(r.relationship, ''), r.is_active, r.created_at
  FROM recipients r
  JOIN group_memberships m ON m.recipient_id = r.id
 WHERE m.group_id = $1
   AND r.parent_id = $2
   AND m.is_active
   AND r.is_active
 ORDER BY r.created_at`

// GroupRecipients loads the active recipients of a group that belong to
// the given parent. Inactive memberships and inactive recipients are
// excluded here; mute state is a separate, later concern.
func (s *Store) GroupRecipients(ctx context.Context, groupID, parentID string) ([]domain.Recipient, error) {
	rows, err := s.pool.Query(ctx, groupRecipientsSQL, groupID, parentID)
	if err != nil {
		return nil, fmt.Errorf("query group recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Name, &r.Email, &r.Phone,
			&r.Relationship, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const recipientByIDSQL = `
SELECT id, parent_id, name, COALESCE(email, ''), COALESCE(phone, ''),
       COALESCE(relationship, ''), is_active, created_at
  FROM recipients
 WHERE id = $1`

// RecipientByID loads one recipient.
func (s *Store) RecipientByID(ctx context.Context, recipientID string) (*domain.Recipient, error) {
	var r domain.Recipient
	err := s.pool.QueryRow(ctx, recipientByIDSQL, recipientID).Scan(
		&r.ID, &r.ParentID, &r.Name, &r.Email, &r.Phone,
		&r.Relationship, &r.IsActive, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrRecipientNotFoundf(recipientID)
	}
	if err != nil {
		return nil, fmt.Errorf("query recipient %s: %w", recipientID, err)
	}
	return &r, nil
}

const groupByIDSQL = `
SELECT id, parent_id, name, default_frequency, default_channels
  FROM groups
 WHERE id = $1`

// GroupByID loads one group.
func (s *Store) GroupByID(ctx context.Context, groupID string) (*domain.Group, error) {
	var g domain.Group
	var channels []string
	err := s.pool.QueryRow(ctx, groupByIDSQL, groupID).Scan(
		&g.ID, &g.ParentID, &g.Name, &g.DefaultFrequency, &channels)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrGroupNotFoundf(groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("query group %s: %w", groupID, err)
	}
	g.DefaultChannels = toChannels(channels)
	return &g, nil
}

const membershipSQL = `
SELECT recipient_id, group_id, is_active, notification_frequency,
       preferred_channels, content_types, mute_until, mute_settings
  FROM group_memberships
 WHERE recipient_id = $1 AND group_id = $2`

// Membership loads one membership row. Returns a MEMBERSHIP_NOT_FOUND
// AppError when the row is absent so settings resolution can distinguish
// "no row" from a query failure.
func (s *Store) Membership(ctx context.Context, recipientID, groupID string) (*domain.GroupMembership, error) {
	var m domain.GroupMembership
	var freq *string
	var channels, contentTypes []string
	var muteSettings []byte
	err := s.pool.QueryRow(ctx, membershipSQL, recipientID, groupID).Scan(
		&m.RecipientID, &m.GroupID, &m.IsActive, &freq,
		&channels, &contentTypes, &m.MuteUntil, &muteSettings)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound(apperrors.CodeMembershipNotFound, "membership not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query membership %s/%s: %w", recipientID, groupID, err)
	}
	if freq != nil {
		f := domain.Frequency(*freq)
		m.Frequency = &f
	}
	if channels != nil {
		m.Channels = toChannels(channels)
	}
	m.ContentTypes = contentTypes
	if len(muteSettings) > 0 {
		var ms domain.MuteSettings
		if err := json.Unmarshal(muteSettings, &ms); err != nil {
			return nil, fmt.Errorf("decode mute settings: %w", err)
		}
		m.MuteSettings = &ms
	}
	return &m, nil
}

const updateMembershipSettingsSQL = `
UPDATE group_memberships
   SET notification_frequency = $3,
       preferred_channels = $4,
       content_types = $5,
       mute_until = $6,
       mute_settings = $7
 WHERE recipient_id = $1 AND group_id = $2`

// MembershipUpdate carries the preference fields a recipient may change
// through a preference link. Nil pointer fields clear the override.
type MembershipUpdate struct {
	Frequency    *domain.Frequency
	Channels     []domain.Channel
	ContentTypes []string
	MuteUntil    *time.Time
	MuteSettings *domain.MuteSettings
}

// UpdateMembershipSettings overwrites the membership's override fields.
func (s *Store) UpdateMembershipSettings(ctx context.Context, recipientID, groupID string, upd MembershipUpdate) error {
	var freq *string
	if upd.Frequency != nil {
		f := string(*upd.Frequency)
		freq = &f
	}
	var muteSettings []byte
	if upd.MuteSettings != nil {
		b, err := json.Marshal(upd.MuteSettings)
		if err != nil {
			return fmt.Errorf("encode mute settings: %w", err)
		}
		muteSettings = b
	}
	tag, err := s.pool.Exec(ctx, updateMembershipSettingsSQL,
		recipientID, groupID, freq, fromChannels(upd.Channels), upd.ContentTypes,
		upd.MuteUntil, muteSettings)
	if err != nil {
		return fmt.Errorf("update membership settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound(apperrors.CodeMembershipNotFound, "membership not found")
	}
	return nil
}

const preferenceTokenHashSQL = `
SELECT COALESCE(preference_token_hash, '') FROM recipients WHERE id = $1`

// PreferenceTokenHash returns the stored hash of the recipient's opaque
// preference token.
func (s *Store) PreferenceTokenHash(ctx context.Context, recipientID string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, preferenceTokenHashSQL, recipientID).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.ErrRecipientNotFoundf(recipientID)
	}
	if err != nil {
		return "", fmt.Errorf("query preference token hash: %w", err)
	}
	return hash, nil
}

const setPreferenceTokenHashSQL = `
UPDATE recipients SET preference_token_hash = $2 WHERE id = $1`

// SetPreferenceTokenHash rotates the stored token hash, revoking every
// previously issued preference link for the recipient.
func (s *Store) SetPreferenceTokenHash(ctx context.Context, recipientID, hash string) error {
	tag, err := s.pool.Exec(ctx, setPreferenceTokenHashSQL, recipientID, hash)
	if err != nil {
		return fmt.Errorf("set preference token hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRecipientNotFoundf(recipientID)
	}
	return nil
}

func toChannels(in []string) []domain.Channel {
	if in == nil {
		return nil
	}
	out := make([]domain.Channel, len(in))
	for i, c := range in {
		out[i] = domain.Channel(c)
	}
	return out
}

func fromChannels(in []domain.Channel) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}
