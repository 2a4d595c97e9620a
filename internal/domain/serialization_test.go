package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGroupMembership_JSONRoundTrip(t *testing.T) {
	muteUntil := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	preserve := false
	freq := FrequencyDailyDigest
	m := GroupMembership{
		RecipientID:  "rcp-1",
		GroupID:      "grp-1",
		IsActive:     true,
		Frequency:    &freq,
		Channels:     []Channel{ChannelEmail, ChannelSMS},
		ContentTypes: []string{"photos", "milestones"},
		MuteUntil:    &muteUntil,
		MuteSettings: &MuteSettings{PreserveUrgent: &preserve},
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded GroupMembership
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, m.RecipientID, decoded.RecipientID)
	require.Equal(t, m.Channels, decoded.Channels)
	require.NotNil(t, decoded.MuteSettings)
	require.False(t, decoded.MuteSettings.PreservesUrgent())
	require.True(t, decoded.Muted(muteUntil.Add(-time.Hour)))
	require.False(t, decoded.Muted(muteUntil.Add(time.Hour)))
}

func TestMuteSettings_EmptyObjectPreservesUrgent(t *testing.T) {
	// The stored mute_settings column defaults to '{}'; an absent
	// preserve_urgent key must read as true.
	var m MuteSettings
	require.NoError(t, json.Unmarshal([]byte(`{}`), &m))
	require.True(t, m.PreservesUrgent())
}
