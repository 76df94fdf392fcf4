package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/metrics"
)

// Monitor advances processing transactions toward completion as a
// background task. Confirmed transactions reach completed without any
// client polling: the worker re-evaluates every open transaction on a
// fixed interval against the current chain height.
type Monitor struct {
	service  *Service
	interval time.Duration
	log      *slog.Logger
}

// NewMonitor creates a confirmation monitor.
func NewMonitor(service *Service, interval time.Duration) *Monitor {
	return &Monitor{service: service, interval: interval, log: slog.Default()}
}

// Start runs the monitor loop until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick re-evaluates all processing transactions. Chain height is
// fetched once per network per tick.
func (m *Monitor) tick(ctx context.Context) {
	open, err := m.service.txRepo.ListByStatus(ctx, domain.TxStatusProcessing)
	if err != nil {
		m.log.Error("monitor failed to list processing transactions", "error", err)
		return
	}
	if len(open) == 0 {
		return
	}

	heights := make(map[domain.Network]uint64)
	for _, tx := range open {
		current, ok := heights[tx.Network]
		if !ok {
			adapter, err := m.service.registry.AdapterFor(tx.Network)
			if err != nil {
				m.log.Error("monitor has no adapter for network", "network", tx.Network)
				continue
			}
			current, err = adapter.LatestBlock(ctx)
			if err != nil {
				// RPC failure: leave state untouched, retry next tick.
				m.log.Warn("monitor height query failed", "network", tx.Network, "error", err)
				continue
			}
			heights[tx.Network] = current
		}

		m.advance(ctx, tx, current)
	}
}

// advance recomputes confirmations for one transaction and completes it
// once the required depth is reached.
func (m *Monitor) advance(ctx context.Context, tx *domain.Transaction, currentBlock uint64) {
	if tx.BlockNumber == 0 || currentBlock < tx.BlockNumber {
		return
	}
	confirmations := currentBlock - tx.BlockNumber

	if confirmations != tx.ConfirmationCount {
		if err := m.service.txRepo.RecordConfirmation(ctx, tx.ID, confirmations); err != nil {
			m.log.Warn("monitor failed to record confirmation", "id", tx.ID, "error", err)
			return
		}
	}

	if confirmations >= tx.RequiredConfirmations {
		metrics.ConfirmationLag.WithLabelValues(string(tx.Network)).Set(0)
		if err := m.service.complete(ctx, tx); err != nil {
			m.log.Error("monitor failed to complete transaction", "id", tx.ID, "error", err)
		}
		return
	}

	metrics.ConfirmationLag.WithLabelValues(string(tx.Network)).
		Set(float64(tx.RequiredConfirmations - confirmations))
}
