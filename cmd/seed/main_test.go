package main

import "testing"

func TestDemoRecipientsCoverAllFrequencies(t *testing.T) {
	want := map[string]bool{
		"daily_digest":    false,
		"weekly_digest":   false,
		"milestones_only": false,
	}
	inheritsDefault := false

	for _, r := range demoRecipients() {
		if r.Frequency == nil {
			inheritsDefault = true
			continue
		}
		if _, ok := want[*r.Frequency]; !ok {
			t.Errorf("recipient %s has unknown frequency %q", r.ID, *r.Frequency)
			continue
		}
		want[*r.Frequency] = true
	}

	if !inheritsDefault {
		t.Error("expected at least one recipient inheriting the group default")
	}
	for freq, seen := range want {
		if !seen {
			t.Errorf("no demo recipient uses frequency %q", freq)
		}
	}
}

func TestDemoRecipientsHaveContactForChannels(t *testing.T) {
	for _, r := range demoRecipients() {
		for _, ch := range r.Channels {
			switch ch {
			case "email":
				if r.Email == "" {
					t.Errorf("recipient %s prefers email but has no address", r.ID)
				}
			case "sms", "whatsapp":
				if r.Phone == "" {
					t.Errorf("recipient %s prefers %s but has no phone", r.ID, ch)
				}
			}
		}
	}
}
