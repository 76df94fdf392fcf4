package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/infra/storage"
)

// Worker rolls due subscriptions into their next billing period on a
// fixed interval, appending a billing-history record per cycle.
type Worker struct {
	subs       storage.SubscriptionRepository
	interval   time.Duration
	periodDays int
	log        *slog.Logger
}

// NewWorker creates the billing rollover worker.
func NewWorker(subs storage.SubscriptionRepository, interval time.Duration, periodDays int) *Worker {
	return &Worker{subs: subs, interval: interval, periodDays: periodDays, log: slog.Default()}
}

// Start runs the rollover loop until ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.rollover(ctx)
		}
	}
}

func (w *Worker) rollover(ctx context.Context) {
	now := time.Now().UTC()
	due, err := w.subs.ListDue(ctx, now)
	if err != nil {
		w.log.Error("billing rollover failed to list due subscriptions", "error", err)
		return
	}

	for _, sub := range due {
		start := sub.CurrentPeriodEnd
		end := start.AddDate(0, 0, w.periodDays)

		// Free plans are waived; paid plans enter the cycle pending
		// until the payment collaborator settles them.
		status := domain.BillingPending
		if sub.Amount.Sign() == 0 {
			status = domain.BillingWaived
		}

		rec := domain.BillingRecord{
			Amount:   sub.Amount,
			Status:   status,
			BilledAt: now,
		}
		if err := w.subs.Rollover(ctx, sub.ID, start, end, rec); err != nil {
			w.log.Error("billing rollover failed", "subscription", sub.ID, "error", err)
			continue
		}
		w.log.Info("subscription rolled over",
			"subscription", sub.ID,
			"merchant", sub.MerchantID,
			"period_end", end,
			"billing_status", status)
	}
}
