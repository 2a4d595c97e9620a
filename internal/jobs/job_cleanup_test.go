package jobs

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/riverqueue/river"
)

type fakePurger struct {
	cutoff  time.Time
	deleted int64
}

func (f *fakePurger) DeleteTerminalJobsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, nil
}

func TestJobCleanupArgsKind(t *testing.T) {
	t.Parallel()

	if got := (JobCleanupArgs{}).Kind(); got != "notification_job_cleanup" {
		t.Fatalf("Kind() = %q, want %q", got, "notification_job_cleanup")
	}
}

func TestJobCleanupArgsInsertOpts(t *testing.T) {
	t.Parallel()

	opts := (JobCleanupArgs{}).InsertOpts()
	if opts.Queue != river.QueueDefault {
		t.Fatalf("Queue = %q, want %q", opts.Queue, river.QueueDefault)
	}
	if opts.MaxAttempts != 1 {
		t.Fatalf("MaxAttempts = %d, want 1", opts.MaxAttempts)
	}
	if opts.UniqueOpts.ByPeriod != 24*time.Hour {
		t.Fatalf("UniqueOpts.ByPeriod = %s, want %s", opts.UniqueOpts.ByPeriod, 24*time.Hour)
	}
}

func TestNewJobCleanupWorkerRetention(t *testing.T) {
	t.Parallel()

	t.Run("defaults to ninety days when non-positive", func(t *testing.T) {
		w := NewJobCleanupWorker(nil, 0)
		if w.retention != DefaultJobRetention {
			t.Fatalf("retention = %s, want %s", w.retention, DefaultJobRetention)
		}
	})

	t.Run("uses explicit retention when provided", func(t *testing.T) {
		want := 7 * 24 * time.Hour
		w := NewJobCleanupWorker(nil, want)
		if w.retention != want {
			t.Fatalf("retention = %s, want %s", w.retention, want)
		}
	})
}

func TestJobCleanupWorkerWork(t *testing.T) {
	t.Parallel()

	purger := &fakePurger{deleted: 12}
	w := NewJobCleanupWorker(purger, 30*24*time.Hour)

	before := time.Now().UTC().Add(-30 * 24 * time.Hour)
	if err := w.Work(context.Background(), nil); err != nil {
		t.Fatalf("Work() error = %v", err)
	}
	if purger.cutoff.Before(before.Add(-time.Minute)) || purger.cutoff.After(before.Add(time.Minute)) {
		t.Fatalf("cutoff = %s, want about %s", purger.cutoff, before)
	}
}

func TestJobCleanupWorkerWork_Uninitialized(t *testing.T) {
	t.Parallel()

	t.Run("nil receiver", func(t *testing.T) {
		var w *JobCleanupWorker
		err := w.Work(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})

	t.Run("nil purger", func(t *testing.T) {
		w := &JobCleanupWorker{}
		err := w.Work(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})
}
