package fees

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/config"
	"github.com/coinflow/payments/internal/metrics"
)

// setFeeRate(uint256) selector on the platform fee contract.
const setFeeRateSelector = "0x45596e2e"

const cooldownName = "fee-contract-sync"

// ContractWriter submits a transaction to the fee contract's network.
// Satisfied by the rpc client.
type ContractWriter interface {
	Call(ctx context.Context, method string, params []any) (any, error)
}

// CooldownLock rate-limits pushes. Satisfied by the redis client.
type CooldownLock interface {
	AcquireCooldown(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseCooldown(ctx context.Context, name string) error
}

// Syncer pushes a new global fee rate to the on-chain contract. This is
// a privileged, rate-limited, asynchronous operation fully decoupled
// from per-transaction fee computation; it never blocks the payment
// path.
type Syncer struct {
	cfg    config.FeeContractConfig
	writer ContractWriter
	locks  CooldownLock
	log    *slog.Logger
}

// NewSyncer creates a fee-rate syncer.
func NewSyncer(cfg config.FeeContractConfig, writer ContractWriter, locks CooldownLock) *Syncer {
	return &Syncer{cfg: cfg, writer: writer, locks: locks, log: slog.Default()}
}

// PushAsync schedules a rate push without blocking the caller. Errors
// are logged; the payment path never observes them.
func (s *Syncer) PushAsync(pct decimal.Decimal) {
	if s.cfg.Address == "" {
		return // contract sync disabled
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Push(ctx, pct); err != nil {
			s.log.Warn("fee rate push failed", "error", err)
		}
	}()
}

// Push submits the new rate, respecting the cooldown window and
// retrying transient RPC failures with backoff.
func (s *Syncer) Push(ctx context.Context, pct decimal.Decimal) error {
	ok, err := s.locks.AcquireCooldown(ctx, cooldownName, s.cfg.SyncCooldown)
	if err != nil {
		return fmt.Errorf("acquire sync cooldown: %w", err)
	}
	if !ok {
		s.log.Debug("fee rate push skipped, cooldown active")
		return nil
	}

	// Rate in basis points, e.g. 2.5% -> 250.
	bps := pct.Mul(decimal.NewFromInt(100)).IntPart()
	data := fmt.Sprintf("%s%064x", setFeeRateSelector, bps)

	backoff := retry.WithMaxRetries(s.cfg.RetryAttempts, retry.NewFibonacci(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, callErr := s.writer.Call(ctx, "eth_sendTransaction", []any{
			map[string]any{
				"to":   s.cfg.Address,
				"data": data,
			},
		})
		if callErr != nil {
			return retry.RetryableError(callErr)
		}
		return nil
	})
	if err != nil {
		metrics.FeeSyncFailures.Inc()
		// Free the cooldown so the next attempt is not blocked for
		// the full window.
		_ = s.locks.ReleaseCooldown(ctx, cooldownName)
		return fmt.Errorf("push fee rate: %w", err)
	}

	s.log.Info("fee rate pushed to contract", "contract", s.cfg.Address, "bps", bps)
	return nil
}
