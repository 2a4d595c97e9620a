package notification

import (
	"context"
	"testing"
	"time"

	"tribe-notify.io/notify/internal/domain"
)

func settingsFor(m map[string]domain.EffectiveSettings) func(recipientID, groupID string) (*domain.EffectiveSettings, error) {
	return func(recipientID, _ string) (*domain.EffectiveSettings, error) {
		s, ok := m[recipientID]
		if !ok {
			d := domain.SystemDefaultSettings()
			return &d, nil
		}
		return &s, nil
	}
}

func TestCreateNotificationJobsChannelViability(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	// Email only; SMS and WhatsApp in the channel list must be dropped.
	fs.recipients["rcp-1"] = domain.Recipient{
		ID: "rcp-1", ParentID: "parent-1", Name: "Nana", Email: "nana@example.com", IsActive: true,
	}
	fs.effectiveFn = settingsFor(map[string]domain.EffectiveSettings{
		"rcp-1": {
			Frequency: domain.FrequencyEveryUpdate,
			Channels:  []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelWhatsApp},
			Source:    domain.SourceMemberOverride,
		},
	})
	e := newTestEngine(t, fs, &fakeSender{}, domain.FailOpen, wednesday)

	jobs, err := e.CreateNotificationJobs(context.Background(), CreateRequest{
		UpdateID: "upd-1", GroupID: "grp-1", ParentID: "parent-1",
	})
	if err != nil {
		t.Fatalf("CreateNotificationJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1 (email only, no phone on record)", len(jobs))
	}
	if jobs[0].Channel != domain.ChannelEmail {
		t.Errorf("job channel = %s, want email", jobs[0].Channel)
	}
	if jobs[0].Status != domain.JobStatusPending {
		t.Errorf("job status = %s, want pending", jobs[0].Status)
	}
}

func TestCreateNotificationJobsIneligibleRecipientSkipped(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.recipients["rcp-1"] = domain.Recipient{
		ID: "rcp-1", ParentID: "parent-1", Email: "a@example.com", IsActive: true,
	}
	fs.shouldDeliverFn = func(_, _ string) (bool, error) { return false, nil }
	e := newTestEngine(t, fs, &fakeSender{}, domain.FailOpen, wednesday)

	jobs, err := e.CreateNotificationJobs(context.Background(), CreateRequest{
		UpdateID: "upd-1", GroupID: "grp-1", ParentID: "parent-1",
	})
	if err != nil {
		t.Fatalf("CreateNotificationJobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("got %d jobs, want 0 for an ineligible recipient", len(jobs))
	}
	if len(fs.inserted) != 0 {
		t.Errorf("inserted %d jobs, want 0", len(fs.inserted))
	}
}

func TestCreateNotificationJobsDigestDemotion(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.recipients["rcp-email"] = domain.Recipient{
		ID: "rcp-email", ParentID: "parent-1", Email: "a@example.com", IsActive: true,
	}
	fs.recipients["rcp-sms"] = domain.Recipient{
		ID: "rcp-sms", ParentID: "parent-1", Phone: "+15550001111", IsActive: true,
	}
	fs.effectiveFn = settingsFor(map[string]domain.EffectiveSettings{
		"rcp-email": {
			Frequency: domain.FrequencyEveryUpdate,
			Channels:  []domain.Channel{domain.ChannelEmail},
			Source:    domain.SourceMemberOverride,
		},
		"rcp-sms": {
			Frequency: domain.FrequencyWeeklyDigest,
			Channels:  []domain.Channel{domain.ChannelSMS},
			Source:    domain.SourceMemberOverride,
		},
	})
	e := newTestEngine(t, fs, &fakeSender{}, domain.FailOpen, wednesday)

	jobs, err := e.CreateNotificationJobs(context.Background(), CreateRequest{
		UpdateID: "upd-1", GroupID: "grp-1", ParentID: "parent-1",
		Type: domain.TypeImmediate,
	})
	if err != nil {
		t.Fatalf("CreateNotificationJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}

	byRecipient := make(map[string]domain.NotificationJob)
	for _, j := range jobs {
		byRecipient[j.RecipientID] = j
	}

	if got := byRecipient["rcp-email"].ScheduledFor; !got.Equal(wednesday) {
		t.Errorf("every_update recipient scheduled for %s, want now %s", got, wednesday)
	}
	wantSunday := time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC)
	if got := byRecipient["rcp-sms"].ScheduledFor; !got.Equal(wantSunday) {
		t.Errorf("weekly_digest recipient scheduled for %s, want %s", got, wantSunday)
	}
}

func TestCreateNotificationJobsScheduleDelay(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.recipients["rcp-1"] = domain.Recipient{
		ID: "rcp-1", ParentID: "parent-1", Email: "a@example.com", IsActive: true,
	}
	e := newTestEngine(t, fs, &fakeSender{}, domain.FailOpen, wednesday)

	jobs, err := e.CreateNotificationJobs(context.Background(), CreateRequest{
		UpdateID: "upd-1", GroupID: "grp-1", ParentID: "parent-1",
		ScheduleDelay: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("CreateNotificationJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if want := wednesday.Add(15 * time.Minute); !jobs[0].ScheduledFor.Equal(want) {
		t.Errorf("scheduled for %s, want %s", jobs[0].ScheduledFor, want)
	}
}

func TestJobIDsDistinctAcrossPasses(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.recipients["rcp-1"] = domain.Recipient{
		ID: "rcp-1", ParentID: "parent-1", Email: "a@example.com", IsActive: true,
	}

	first := newTestEngine(t, fs, &fakeSender{}, domain.FailOpen, wednesday)
	second := newTestEngine(t, fs, &fakeSender{}, domain.FailOpen, wednesday.Add(time.Millisecond))

	req := CreateRequest{UpdateID: "upd-1", GroupID: "grp-1", ParentID: "parent-1"}
	a, err := first.CreateNotificationJobs(context.Background(), req)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	b, err := second.CreateNotificationJobs(context.Background(), req)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if a[0].ID == b[0].ID {
		t.Errorf("job IDs collide across passes: %s", a[0].ID)
	}
}
