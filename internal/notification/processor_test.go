package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"tribe-notify.io/notify/internal/domain"
	"tribe-notify.io/notify/internal/transport"
)

func dueJob(id, recipientID string, ch domain.Channel, attempts int) domain.NotificationJob {
	payload, _ := json.Marshal(jobPayload{
		Content:  UpdateContent{ChildName: "Maya", SenderName: "Alex", Body: "First steps!"},
		Settings: domain.SystemDefaultSettings(),
	})
	return domain.NotificationJob{
		ID:           id,
		RecipientID:  recipientID,
		GroupID:      "grp-1",
		UpdateID:     "upd-1",
		ScheduledFor: wednesday.Add(-time.Minute),
		Type:         domain.TypeImmediate,
		Urgency:      domain.UrgencyNormal,
		Content:      payload,
		Channel:      ch,
		Status:       domain.JobStatusProcessing,
		Attempts:     attempts,
		MaxAttempts:  3,
		CreatedAt:    wednesday.Add(-time.Hour),
	}
}

func TestProcessPendingJobsDelivers(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.recipients["rcp-1"] = domain.Recipient{
		ID: "rcp-1", ParentID: "parent-1", Name: "Nana", Email: "nana@example.com", IsActive: true,
	}
	fs.due = []domain.NotificationJob{dueJob("job-1", "rcp-1", domain.ChannelEmail, 0)}

	snd := &fakeSender{sendFn: func(_ domain.Channel, _ transport.Message) (string, error) {
		return "provider-42", nil
	}}
	e := newTestEngine(t, fs, snd, domain.FailOpen, wednesday)

	results, err := e.ProcessPendingJobs(context.Background(), 50)
	if err != nil {
		t.Fatalf("ProcessPendingJobs: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Status != domain.DeliveryDelivered {
		t.Errorf("status = %s, want delivered", results[0].Status)
	}
	if results[0].MessageID != "provider-42" {
		t.Errorf("message ID = %q, want provider-42", results[0].MessageID)
	}
	if fs.sentJobs["job-1"] != "provider-42" {
		t.Errorf("job not marked sent with provider ID, got %q", fs.sentJobs["job-1"])
	}
	if len(snd.sent) != 1 {
		t.Fatalf("transport saw %d sends, want 1", len(snd.sent))
	}
	if snd.sent[0].To != "nana@example.com" {
		t.Errorf("sent to %q, want recipient email", snd.sent[0].To)
	}
	if !strings.Contains(snd.sent[0].Body, "First steps!") {
		t.Errorf("rendered body missing update text: %q", snd.sent[0].Body)
	}
}

func TestProcessPendingJobsRevalidation(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.recipients["rcp-1"] = domain.Recipient{
		ID: "rcp-1", ParentID: "parent-1", Email: "a@example.com", IsActive: true,
	}
	fs.due = []domain.NotificationJob{dueJob("job-1", "rcp-1", domain.ChannelEmail, 0)}
	// Recipient became muted after the job was created.
	fs.shouldDeliverFn = func(_, _ string) (bool, error) { return false, nil }

	snd := &fakeSender{}
	e := newTestEngine(t, fs, snd, domain.FailOpen, wednesday)

	results, err := e.ProcessPendingJobs(context.Background(), 50)
	if err != nil {
		t.Fatalf("ProcessPendingJobs: %v", err)
	}
	if results[0].Status != domain.DeliveryMuted {
		t.Errorf("status = %s, want muted", results[0].Status)
	}
	if results[0].Reason != "Recipient muted or ineligible" {
		t.Errorf("reason = %q", results[0].Reason)
	}
	if fs.skippedJobs["job-1"] != "Recipient muted or ineligible" {
		t.Errorf("job not marked skipped, got %q", fs.skippedJobs["job-1"])
	}
	if len(snd.sent) != 0 {
		t.Errorf("transport saw %d sends, want 0", len(snd.sent))
	}
}

func TestProcessPendingJobsRetryBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		attempts  int
		wantDelay time.Duration
	}{
		{"first failure backs off base", 0, 2 * time.Minute},
		{"second failure doubles", 1, 4 * time.Minute},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fs := newFakeStore()
			fs.recipients["rcp-1"] = domain.Recipient{
				ID: "rcp-1", ParentID: "parent-1", Email: "a@example.com", IsActive: true,
			}
			fs.due = []domain.NotificationJob{dueJob("job-1", "rcp-1", domain.ChannelEmail, tc.attempts)}

			snd := &fakeSender{sendFn: func(_ domain.Channel, _ transport.Message) (string, error) {
				return "", errors.New("provider 503")
			}}
			e := newTestEngine(t, fs, snd, domain.FailOpen, wednesday)

			results, err := e.ProcessPendingJobs(context.Background(), 50)
			if err != nil {
				t.Fatalf("ProcessPendingJobs: %v", err)
			}
			if results[0].Status != domain.DeliveryScheduled {
				t.Fatalf("status = %s, want scheduled", results[0].Status)
			}
			next, ok := fs.rescheduledJobs["job-1"]
			if !ok {
				t.Fatal("job was not rescheduled")
			}
			if want := wednesday.Add(tc.wantDelay); !next.Equal(want) {
				t.Errorf("next attempt at %s, want %s", next, want)
			}
		})
	}
}

func TestProcessPendingJobsExhaustedAttempts(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.recipients["rcp-1"] = domain.Recipient{
		ID: "rcp-1", ParentID: "parent-1", Email: "a@example.com", IsActive: true,
	}
	// Two prior attempts with MaxAttempts 3: this failure is terminal.
	fs.due = []domain.NotificationJob{dueJob("job-1", "rcp-1", domain.ChannelEmail, 2)}

	snd := &fakeSender{sendFn: func(_ domain.Channel, _ transport.Message) (string, error) {
		return "", errors.New("provider 503")
	}}
	e := newTestEngine(t, fs, snd, domain.FailOpen, wednesday)

	results, err := e.ProcessPendingJobs(context.Background(), 50)
	if err != nil {
		t.Fatalf("ProcessPendingJobs: %v", err)
	}
	if results[0].Status != domain.DeliveryFailed {
		t.Errorf("status = %s, want failed", results[0].Status)
	}
	if fs.failedJobs["job-1"] == "" {
		t.Error("job not marked failed")
	}
	if _, rescheduled := fs.rescheduledJobs["job-1"]; rescheduled {
		t.Error("exhausted job must not be rescheduled")
	}
}

func TestProcessPendingJobsIsolatesPerJobErrors(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.recipients["rcp-ok"] = domain.Recipient{
		ID: "rcp-ok", ParentID: "parent-1", Email: "ok@example.com", IsActive: true,
	}
	// rcp-gone has no recipient row: its delivery fails, the batch continues.
	fs.due = []domain.NotificationJob{
		dueJob("job-bad", "rcp-gone", domain.ChannelEmail, 2),
		dueJob("job-good", "rcp-ok", domain.ChannelEmail, 0),
	}

	e := newTestEngine(t, fs, &fakeSender{}, domain.FailOpen, wednesday)

	results, err := e.ProcessPendingJobs(context.Background(), 50)
	if err != nil {
		t.Fatalf("ProcessPendingJobs: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Status != domain.DeliveryFailed {
		t.Errorf("bad job status = %s, want failed", results[0].Status)
	}
	if results[1].Status != domain.DeliveryDelivered {
		t.Errorf("good job status = %s, want delivered", results[1].Status)
	}
}

func TestProcessPendingJobsEmptyBatch(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	e := newTestEngine(t, fs, &fakeSender{}, domain.FailOpen, wednesday)

	results, err := e.ProcessPendingJobs(context.Background(), 0)
	if err != nil {
		t.Fatalf("ProcessPendingJobs: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
