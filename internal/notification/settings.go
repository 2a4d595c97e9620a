package notification

import (
	"context"

	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/domain"
)

// EffectiveSettings resolves the recipient's notification preferences
// for one group through three tiers: membership override, group
// default, system default.
//
// The primary path is a single authority call that resolves all three
// tiers server-side. If that errors or returns nothing, the engine
// joins the membership and group rows itself. Resolution never fails:
// any error on the fallback path degrades to the system default, so
// callers must test for the concrete default values rather than an
// error.
func (e *Engine) EffectiveSettings(ctx context.Context, recipientID, groupID string) domain.EffectiveSettings {
	resolved, err := e.store.EffectiveSettings(ctx, recipientID, groupID)
	if err == nil && resolved != nil {
		return *resolved
	}
	if err != nil {
		e.log.Warn("settings authority unavailable, resolving locally",
			zap.String("recipient_id", recipientID),
			zap.String("group_id", groupID),
			zap.Error(err))
	}
	return e.resolveSettingsLocally(ctx, recipientID, groupID)
}

func (e *Engine) resolveSettingsLocally(ctx context.Context, recipientID, groupID string) domain.EffectiveSettings {
	membership, err := e.store.Membership(ctx, recipientID, groupID)
	if err != nil {
		e.log.Warn("membership lookup failed, using system defaults",
			zap.String("recipient_id", recipientID),
			zap.String("group_id", groupID),
			zap.Error(err))
		return domain.SystemDefaultSettings()
	}

	group, err := e.store.GroupByID(ctx, groupID)
	if err != nil {
		e.log.Warn("group lookup failed, using system defaults",
			zap.String("group_id", groupID),
			zap.Error(err))
		return domain.SystemDefaultSettings()
	}

	defaults := domain.SystemDefaultSettings()
	out := domain.EffectiveSettings{Source: domain.SourceGroupDefault}

	switch {
	case membership.Frequency != nil:
		out.Frequency = *membership.Frequency
		out.Source = domain.SourceMemberOverride
	case group.DefaultFrequency != "":
		out.Frequency = group.DefaultFrequency
	default:
		out.Frequency = defaults.Frequency
	}

	switch {
	case len(membership.Channels) > 0:
		out.Channels = membership.Channels
		out.Source = domain.SourceMemberOverride
	case len(group.DefaultChannels) > 0:
		out.Channels = group.DefaultChannels
	default:
		out.Channels = defaults.Channels
	}

	if len(membership.ContentTypes) > 0 {
		out.ContentTypes = membership.ContentTypes
		out.Source = domain.SourceMemberOverride
	} else {
		out.ContentTypes = defaults.ContentTypes
	}

	return out
}
