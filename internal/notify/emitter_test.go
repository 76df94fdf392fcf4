package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coinflow/payments/internal/core/domain"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
	err    error
	done   chan struct{}
}

func (e *recordingEmitter) Emit(ctx context.Context, event Event) error {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()
	if e.done != nil {
		close(e.done)
	}
	return e.err
}

func TestDispatcher_FansOutWithoutBlocking(t *testing.T) {
	a := &recordingEmitter{done: make(chan struct{})}
	b := &recordingEmitter{done: make(chan struct{}), err: errors.New("down")}
	d := NewDispatcher(time.Second, a, b)

	tx := &domain.Transaction{
		ID:         "tx-1",
		MerchantID: "m-1",
		Status:     domain.TxStatusCompleted,
	}
	d.Fire(EventCompleted, tx)

	for _, done := range []chan struct{}{a.done, b.done} {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("emitter not invoked")
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(a.events))
	}
	event := a.events[0]
	if event.Type != EventCompleted || event.MerchantID != "m-1" {
		t.Errorf("unexpected event %+v", event)
	}
	if event.Payment.ID != "tx-1" {
		t.Errorf("expected public projection, got %+v", event.Payment)
	}
}

func TestDispatcher_NoEmittersIsSafe(t *testing.T) {
	d := NewDispatcher(time.Second)
	d.Fire(EventCreated, &domain.Transaction{ID: "tx-1"})
}
