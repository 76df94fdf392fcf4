// Package notify emits lifecycle events to external collaborators.
// Emission is best effort: failures are logged and swallowed, never
// rolled back into the payment path.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinflow/payments/internal/core/domain"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventCreated   EventType = "payment_created"
	EventProcessed EventType = "payment_processed"
	EventCompleted EventType = "payment_completed"
	EventRefunded  EventType = "payment_refunded"
)

// Event is the payload pushed to the notification collaborators.
type Event struct {
	Type       EventType         `json:"type"`
	Payment    domain.PublicView `json:"payment"`
	MerchantID string            `json:"merchant_id"`
	EmittedAt  time.Time         `json:"emitted_at"`
}

// Emitter delivers one event to one collaborator.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Dispatcher fans an event out to all collaborators without blocking
// the caller.
type Dispatcher struct {
	emitters []Emitter
	timeout  time.Duration
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher over the given emitters.
func NewDispatcher(timeout time.Duration, emitters ...Emitter) *Dispatcher {
	return &Dispatcher{emitters: emitters, timeout: timeout, log: slog.Default()}
}

// Fire emits asynchronously. It returns immediately; delivery errors
// are logged only.
func (d *Dispatcher) Fire(eventType EventType, tx *domain.Transaction) {
	event := Event{
		Type:       eventType,
		Payment:    tx.Public(),
		MerchantID: tx.MerchantID,
		EmittedAt:  time.Now().UTC(),
	}

	for _, e := range d.emitters {
		emitter := e
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := emitter.Emit(ctx, event); err != nil {
				d.log.Warn("event emission failed",
					"type", event.Type,
					"transaction", event.Payment.ID,
					"error", err)
			}
		}()
	}
}
