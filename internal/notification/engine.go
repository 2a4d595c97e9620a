// Package notification implements the eligibility and delivery
// scheduling engine: recipient resolution, mute and settings
// resolution, job materialization, batch delivery, and analytics.
package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tribe-notify.io/notify/internal/domain"
	"tribe-notify.io/notify/internal/pkg/worker"
	"tribe-notify.io/notify/internal/repository"
	"tribe-notify.io/notify/internal/transport"
)

// Store is the persistence surface the engine needs. The repository's
// Store satisfies it; tests substitute a fake.
type Store interface {
	GroupRecipients(ctx context.Context, groupID, parentID string) ([]domain.Recipient, error)
	RecipientByID(ctx context.Context, recipientID string) (*domain.Recipient, error)
	GroupByID(ctx context.Context, groupID string) (*domain.Group, error)
	Membership(ctx context.Context, recipientID, groupID string) (*domain.GroupMembership, error)

	IsRecipientMuted(ctx context.Context, recipientID, groupID string) (bool, error)
	MuteSettings(ctx context.Context, recipientID, groupID string) (domain.MuteSettings, error)
	EffectiveSettings(ctx context.Context, recipientID, groupID string) (*domain.EffectiveSettings, error)
	ShouldDeliver(ctx context.Context, recipientID, groupID string, notificationType domain.NotificationType, urgency domain.Urgency) (bool, error)

	InsertJobs(ctx context.Context, jobs []domain.NotificationJob) error
	ClaimDueJobs(ctx context.Context, limit int, now time.Time) ([]domain.NotificationJob, error)
	MarkJobSent(ctx context.Context, jobID, messageID string, at time.Time) error
	MarkJobSkipped(ctx context.Context, jobID, reason string, at time.Time) error
	MarkJobFailed(ctx context.Context, jobID, reason string, at time.Time) error
	RescheduleJob(ctx context.Context, jobID, reason string, nextAttemptAt time.Time) error

	JobCounts(ctx context.Context, groupID string, since time.Time) (map[domain.JobStatus]int, map[domain.Channel]int, error)
}

var _ Store = (*repository.Store)(nil)

// Sender routes one rendered message to a channel transport. Satisfied
// by transport.Registry.
type Sender interface {
	Send(ctx context.Context, ch domain.Channel, msg transport.Message) (string, error)
}

// Params configures an Engine. Store and Sender are required; zero
// values elsewhere fall back to production defaults.
type Params struct {
	Store  Store
	Sender Sender

	// DeliveryPool, when set, bounds concurrent transport calls across
	// all processing runs. Nil sends inline.
	DeliveryPool *worker.Pool

	Policy       domain.DegradationPolicy
	DigestHour   int
	Location     *time.Location
	BatchSize    int
	MaxAttempts  int
	RetryBackoff time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time

	Logger *zap.Logger
}

// Engine is the notification engine. All dependencies are injected;
// it holds no global state.
type Engine struct {
	store        Store
	sender       Sender
	renderer     *Renderer
	deliveryPool *worker.Pool

	policy       domain.DegradationPolicy
	digestHour   int
	loc          *time.Location
	batchSize    int
	maxAttempts  int
	retryBackoff time.Duration

	now func() time.Time
	log *zap.Logger
}

// New constructs an Engine.
func New(p Params) (*Engine, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:        p.Store,
		sender:       p.Sender,
		renderer:     renderer,
		deliveryPool: p.DeliveryPool,
		policy:       p.Policy,
		digestHour:   p.DigestHour,
		loc:          p.Location,
		batchSize:    p.BatchSize,
		maxAttempts:  p.MaxAttempts,
		retryBackoff: p.RetryBackoff,
		now:          p.Now,
		log:          p.Logger,
	}
	if e.policy == "" {
		e.policy = domain.FailOpen
	}
	if e.digestHour == 0 {
		e.digestHour = 8
	}
	if e.loc == nil {
		e.loc = time.Local
	}
	if e.batchSize <= 0 {
		e.batchSize = 50
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = 3
	}
	if e.retryBackoff <= 0 {
		e.retryBackoff = 2 * time.Minute
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e, nil
}

// degradeBlocked is the policy answer to "is this recipient blocked?"
// when the authority is unreachable. Fail-open says not blocked.
func (e *Engine) degradeBlocked(op string, err error, fields ...zap.Field) bool {
	fields = append(fields, zap.String("policy", string(e.policy)), zap.Error(err))
	e.log.Warn(op+" degraded by policy", fields...)
	return e.policy == domain.FailClosed
}
