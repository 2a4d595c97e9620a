package notification

import (
	"context"
	"testing"
	"time"

	"tribe-notify.io/notify/internal/domain"
	"tribe-notify.io/notify/internal/pkg/logger"
	"tribe-notify.io/notify/internal/pkg/worker"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestProcessPendingJobsWithDeliveryPool(t *testing.T) {
	fs := newFakeStore()
	fs.recipients["rcp-1"] = domain.Recipient{
		ID: "rcp-1", ParentID: "parent-1", Name: "Nana", Email: "nana@example.com", IsActive: true,
	}
	fs.due = []domain.NotificationJob{
		dueJob("job-1", "rcp-1", domain.ChannelEmail, 0),
		dueJob("job-2", "rcp-1", domain.ChannelEmail, 0),
	}

	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{
		GeneralPoolSize:  2,
		DeliveryPoolSize: 1,
	})
	if err != nil {
		t.Fatalf("NewPools: %v", err)
	}
	defer pools.Shutdown()

	snd := &fakeSender{}
	e, err := New(Params{
		Store:        fs,
		Sender:       snd,
		DeliveryPool: pools.Delivery,
		Now:          func() time.Time { return wednesday },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results, err := e.ProcessPendingJobs(context.Background(), 50)
	if err != nil {
		t.Fatalf("ProcessPendingJobs: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if r.Status != domain.DeliveryDelivered {
			t.Errorf("job %s status = %s, want delivered", r.JobID, r.Status)
		}
	}
	if len(snd.sent) != 2 {
		t.Errorf("transport saw %d sends, want 2", len(snd.sent))
	}
}
