package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tidewater-dev/crewdeck/internal/metrics"
	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/storage"
)

// Dispatcher drains the outbox and persists notification rows. It owns the
// failure domain for notification writes: a storage error drops the intent
// with a log line, no retry.
type Dispatcher struct {
	storage storage.Storage
	outbox  *Outbox
	limiter *rate.Limiter
}

// NewDispatcher creates a dispatcher. perSecond bounds sustained write
// throughput (0 disables rate limiting).
func NewDispatcher(store storage.Storage, outbox *Outbox, perSecond int) *Dispatcher {
	var limiter *rate.Limiter
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
	return &Dispatcher{
		storage: store,
		outbox:  outbox,
		limiter: limiter,
	}
}

// Run processes intents until the context is canceled. Remaining queued
// intents are flushed with a short grace period on shutdown.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.flush()
			return nil
		case intent := <-d.outbox.Drain():
			d.deliver(ctx, intent)
		}
	}
}

// deliver persists a single intent, best-effort.
func (d *Dispatcher) deliver(ctx context.Context, intent Intent) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return // context canceled
		}
	}

	n := &models.Notification{
		ID:        uuid.New().String(),
		Type:      intent.Type,
		Message:   intent.Message,
		UserID:    intent.RecipientID,
		ProjectID: intent.ProjectID,
		TaskID:    intent.TaskID,
		CreatedAt: time.Now(),
	}

	if err := d.storage.Notifications().Create(ctx, n); err != nil {
		metrics.NotificationsFailed.Inc()
		log.Printf("persist notification for user %s: %v", intent.RecipientID, err)
		return
	}
	metrics.NotificationsDelivered.Inc()
}

// flush drains whatever is left in the outbox with a bounded deadline so
// shutdown is not held hostage by a slow database.
func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case intent := <-d.outbox.Drain():
			d.deliver(ctx, intent)
		default:
			return
		}
	}
}
