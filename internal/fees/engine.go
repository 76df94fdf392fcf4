package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

// Quote is the fee breakdown for one payment, computed exactly once at
// the processing -> completed transition and frozen into the record.
type Quote struct {
	Fee              decimal.Decimal
	Percentage       decimal.Decimal
	MerchantReceives decimal.Decimal
}

// Engine resolves a merchant's subscription tier to a fee percentage.
// Quote is a pure function of plan + amount; it never touches the chain.
type Engine struct {
	percentages map[domain.Plan]decimal.Decimal
}

var defaultPercentages = map[domain.Plan]decimal.Decimal{
	domain.PlanFree:         decimal.NewFromFloat(2.5),
	domain.PlanStarter:      decimal.NewFromFloat(2.0),
	domain.PlanProfessional: decimal.NewFromFloat(1.5),
	domain.PlanEnterprise:   decimal.NewFromFloat(1.0),
}

// NewEngine builds an engine from the configured plan -> percentage
// table (decimal strings), falling back to defaults for unset plans.
func NewEngine(table map[string]string) (*Engine, error) {
	percentages := make(map[domain.Plan]decimal.Decimal, len(defaultPercentages))
	for plan, pct := range defaultPercentages {
		percentages[plan] = pct
	}
	for plan, raw := range table {
		if !domain.ValidPlans[domain.Plan(plan)] {
			return nil, fmt.Errorf("unknown plan %q in fee table", plan)
		}
		pct, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid fee percentage for plan %s: %w", plan, err)
		}
		if pct.Sign() < 0 {
			return nil, fmt.Errorf("fee percentage for plan %s must not be negative", plan)
		}
		percentages[domain.Plan(plan)] = pct
	}
	return &Engine{percentages: percentages}, nil
}

// Percentage returns the fee percentage for plan. Unknown plans get the
// free-tier rate.
func (e *Engine) Percentage(plan domain.Plan) decimal.Decimal {
	if pct, ok := e.percentages[plan]; ok {
		return pct
	}
	return e.percentages[domain.PlanFree]
}

// Quote computes the platform fee and merchant net for one amount.
func (e *Engine) Quote(plan domain.Plan, amount decimal.Decimal) Quote {
	pct := e.Percentage(plan)
	fee := amount.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	return Quote{
		Fee:              fee,
		Percentage:       pct,
		MerchantReceives: amount.Sub(fee),
	}
}
