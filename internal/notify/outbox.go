package notify

import (
	"log"

	"github.com/tidewater-dev/crewdeck/internal/metrics"
	"github.com/tidewater-dev/crewdeck/internal/models"
)

// Intent is a queued notification awaiting persistence. It is a value
// object: once queued, the triggering request is done with it.
type Intent struct {
	Type        models.NotificationType
	Message     string
	RecipientID string
	ProjectID   string
	TaskID      string
}

// Outbox is a bounded in-memory queue of notification intents. When full,
// new intents are dropped and logged. Delivery is at-most-once.
type Outbox struct {
	ch chan Intent
}

// DefaultOutboxSize bounds pending intents before drops begin.
const DefaultOutboxSize = 4096

// NewOutbox creates an outbox with the given capacity (0 uses the default).
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{ch: make(chan Intent, size)}
}

// Queue enqueues an intent without blocking. A full outbox drops the
// intent; the triggering request is never delayed or failed.
func (o *Outbox) Queue(intent Intent) {
	select {
	case o.ch <- intent:
		metrics.NotificationsQueued.Inc()
	default:
		metrics.NotificationsDropped.Inc()
		log.Printf("notification outbox full, dropping %s intent for user %s",
			intent.Type, intent.RecipientID)
	}
}

// Drain returns the receive channel for the dispatcher.
func (o *Outbox) Drain() <-chan Intent {
	return o.ch
}

// Pending returns the number of intents waiting in the outbox.
func (o *Outbox) Pending() int {
	return len(o.ch)
}
