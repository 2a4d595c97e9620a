// Package domain defines the core types of the Tribe notification engine.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Channel is a delivery channel for a notification job.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// Valid reports whether c is a known delivery channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp:
		return true
	}
	return false
}

// Frequency is a recipient's notification cadence preference.
type Frequency string

const (
	FrequencyEveryUpdate    Frequency = "every_update"
	FrequencyDailyDigest    Frequency = "daily_digest"
	FrequencyWeeklyDigest   Frequency = "weekly_digest"
	FrequencyMilestonesOnly Frequency = "milestones_only"
)

// NotificationType classifies a unit of delivery work.
type NotificationType string

const (
	TypeImmediate NotificationType = "immediate"
	TypeDigest    NotificationType = "digest"
	TypeMilestone NotificationType = "milestone"
)

// Urgency is the urgency level attached to an update.
// Urgent notifications may break through an active mute.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
	UrgencyLow    Urgency = "low"
)

// JobStatus is the lifecycle state of a notification job.
//
// pending → processing → {sent, failed, skipped}. A processing job whose
// delivery attempt fails with attempts remaining transitions back to
// pending with a future scheduled_for; failed is terminal only once the
// attempt budget is exhausted.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSent       JobStatus = "sent"
	JobStatusFailed     JobStatus = "failed"
	JobStatusSkipped    JobStatus = "skipped"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSent, JobStatusFailed, JobStatusSkipped:
		return true
	}
	return false
}

// DeliveryStatus is the outcome of one delivery attempt, as reported to
// the caller of the batch processor.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryMuted     DeliveryStatus = "muted"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryScheduled DeliveryStatus = "scheduled"
)

// SettingsSource tags which tier supplied a resolved settings value.
type SettingsSource string

const (
	SourceMemberOverride SettingsSource = "member_override"
	SourceGroupDefault   SettingsSource = "group_default"
	SourceSystemDefault  SettingsSource = "system_default"
)

// DegradationPolicy decides how resolution functions behave when the
// database authority is unreachable. FailOpen treats the recipient as
// deliverable (never silently drop a family update over an
// infrastructure blip); FailClosed treats them as blocked.
type DegradationPolicy string

const (
	FailOpen   DegradationPolicy = "fail_open"
	FailClosed DegradationPolicy = "fail_closed"
)

// Recipient is a person who receives notifications for one parent's
// updates. PreferenceToken is an opaque identifier keyed into signed
// preference-management links; it is never the raw link itself.
type Recipient struct {
	ID              string    `json:"id"`
	ParentID        string    `json:"parent_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Relationship    string    `json:"relationship,omitempty"`
	PreferenceToken string    `json:"-"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// CanReceive reports whether the recipient has the contact details the
// channel requires.
func (r Recipient) CanReceive(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return r.Email != ""
	case ChannelSMS, ChannelWhatsApp:
		return r.Phone != ""
	}
	return false
}

// Group is a circle of recipients for one parent's updates.
type Group struct {
	ID               string    `json:"id"`
	ParentID         string    `json:"parent_id"`
	Name             string    `json:"name"`
	DefaultFrequency Frequency `json:"default_frequency"`
	DefaultChannels  []Channel `json:"default_channels"`
}

// MuteSettings is the per-mute option bag. PreserveUrgent defaults to
// true: urgent messages break through a mute unless the recipient
// explicitly opted out.
type MuteSettings struct {
	PreserveUrgent *bool `json:"preserve_urgent,omitempty"`
}

// PreservesUrgent applies the default-true rule.
func (m MuteSettings) PreservesUrgent() bool {
	return m.PreserveUrgent == nil || *m.PreserveUrgent
}

// GroupMembership joins a Recipient to a Group, with optional
// per-membership overrides. Nil override fields fall through to the
// group defaults during settings resolution.
type GroupMembership struct {
	RecipientID  string        `json:"recipient_id"`
	GroupID      string        `json:"group_id"`
	IsActive     bool          `json:"is_active"`
	Frequency    *Frequency    `json:"notification_frequency,omitempty"`
	Channels     []Channel     `json:"preferred_channels,omitempty"`
	ContentTypes []string      `json:"content_types,omitempty"`
	MuteUntil    *time.Time    `json:"mute_until,omitempty"`
	MuteSettings *MuteSettings `json:"mute_settings,omitempty"`
}

// Muted reports whether the membership carries an unexpired mute.
func (m GroupMembership) Muted(now time.Time) bool {
	return m.MuteUntil != nil && m.MuteUntil.After(now)
}

// EffectiveSettings is the resolved, non-persisted view of a
// recipient's notification preferences for one group. Computed fresh on
// every resolution call; never cached.
type EffectiveSettings struct {
	Frequency    Frequency      `json:"frequency"`
	Channels     []Channel      `json:"channels"`
	ContentTypes []string       `json:"content_types"`
	Source       SettingsSource `json:"source"`
}

// SystemDefaultSettings is the final resolution tier when neither the
// membership nor the group supplies a value.
func SystemDefaultSettings() EffectiveSettings {
	return EffectiveSettings{
		Frequency:    FrequencyEveryUpdate,
		Channels:     []Channel{ChannelEmail},
		ContentTypes: []string{"photos", "text", "milestones"},
		Source:       SourceSystemDefault,
	}
}

// NotificationJob is one scheduled unit of delivery work. Created by
// job materialization, mutated only by the batch processor.
type NotificationJob struct {
	ID            string           `json:"id"`
	RecipientID   string           `json:"recipient_id"`
	GroupID       string           `json:"group_id"`
	UpdateID      string           `json:"update_id"`
	ScheduledFor  time.Time        `json:"scheduled_for"`
	Type          NotificationType `json:"notification_type"`
	Urgency       Urgency          `json:"urgency"`
	Content       json.RawMessage  `json:"content"`
	Channel       Channel          `json:"delivery_method"`
	Status        JobStatus        `json:"status"`
	Attempts      int              `json:"attempts"`
	MaxAttempts   int              `json:"max_attempts"`
	NextAttemptAt *time.Time       `json:"next_attempt_at,omitempty"`
	MessageID     string           `json:"message_id,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	ProcessedAt   *time.Time       `json:"processed_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// JobID synthesizes the job identifier for one generation pass. The
// millisecond component keeps two passes for the same
// update/recipient/channel distinct.
func JobID(updateID, recipientID string, ch Channel, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%d", updateID, recipientID, ch, at.UnixMilli())
}

// DeliveryResult records the outcome of one delivery attempt. It is
// returned to the caller for reporting; the durable record is the job
// row itself.
type DeliveryResult struct {
	JobID       string         `json:"job_id"`
	RecipientID string         `json:"recipient_id"`
	GroupID     string         `json:"group_id"`
	Channel     Channel        `json:"channel"`
	Status      DeliveryStatus `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	MessageID   string         `json:"message_id,omitempty"`
}

// AnalyticsSummary aggregates job outcomes for a group over a trailing
// window.
type AnalyticsSummary struct {
	GroupID      string          `json:"group_id"`
	WindowDays   int             `json:"window_days"`
	TotalJobs    int             `json:"total_jobs"`
	Sent         int             `json:"sent"`
	Failed       int             `json:"failed"`
	Skipped      int             `json:"skipped"`
	Pending      int             `json:"pending"`
	ByChannel    map[Channel]int `json:"by_channel"`
	DeliveryRate float64         `json:"delivery_rate"`
}
