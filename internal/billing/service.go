// Package billing owns subscription lifecycle: plan changes and the
// cron-driven billing period rollover.
package billing

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/fees"
	"github.com/coinflow/payments/internal/infra/storage"
)

// planPrices is the monthly price per tier.
var planPrices = map[domain.Plan]decimal.Decimal{
	domain.PlanFree:         decimal.Zero,
	domain.PlanStarter:      decimal.NewFromInt(29),
	domain.PlanProfessional: decimal.NewFromInt(99),
	domain.PlanEnterprise:   decimal.NewFromInt(299),
}

// Service handles subscription plan changes.
type Service struct {
	subs      storage.SubscriptionRepository
	feeEngine *fees.Engine
	syncer    *fees.Syncer
	log       *slog.Logger
}

// NewService creates the billing service. syncer may be nil when the
// on-chain fee contract is not configured.
func NewService(subs storage.SubscriptionRepository, feeEngine *fees.Engine, syncer *fees.Syncer) *Service {
	return &Service{subs: subs, feeEngine: feeEngine, syncer: syncer, log: slog.Default()}
}

// ChangePlan moves a merchant to a new tier. Completed transactions
// keep their frozen fees; only future completions use the new rate.
// The on-chain fee-rate push is scheduled asynchronously and never
// blocks the caller.
func (s *Service) ChangePlan(ctx context.Context, merchantID string, plan domain.Plan) error {
	if !domain.ValidPlans[plan] {
		return domain.Rejectf(domain.CodeInvalidPlan, "unknown plan %q", plan)
	}

	if err := s.subs.UpdatePlan(ctx, merchantID, plan, planPrices[plan]); err != nil {
		return err
	}

	if s.syncer != nil {
		s.syncer.PushAsync(s.feeEngine.Percentage(plan))
	}

	s.log.Info("subscription plan changed", "merchant", merchantID, "plan", plan)
	return nil
}
