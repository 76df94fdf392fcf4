package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinflow/payments/internal/infra/storage"
	"github.com/coinflow/payments/internal/metrics"
)

// Sweeper marks pending transactions that outlived the payment window
// as failed. Without it an abandoned checkout would stay pending
// forever.
type Sweeper struct {
	txRepo   storage.TransactionRepository
	expiry   time.Duration
	interval time.Duration
	log      *slog.Logger
}

// NewSweeper creates an expiry sweeper.
func NewSweeper(txRepo storage.TransactionRepository, expiry, interval time.Duration) *Sweeper {
	return &Sweeper{txRepo: txRepo, expiry: expiry, interval: interval, log: slog.Default()}
}

// Start runs the sweep loop until ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	if s.expiry <= 0 {
		return // expiry disabled
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial sweep
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.expiry)
	swept, err := s.txRepo.FailExpiredPending(ctx, cutoff)
	if err != nil {
		s.log.Error("expiry sweep failed", "error", err)
		return
	}
	if swept > 0 {
		metrics.PaymentsFailed.WithLabelValues("expired").Add(float64(swept))
		s.log.Info("swept expired pending transactions", "count", swept)
	}
}
