package fees

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

func TestQuote_DefaultTiers(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	cases := []struct {
		plan     domain.Plan
		amount   string
		fee      string
		receives string
	}{
		{domain.PlanFree, "100", "2.5", "97.5"},
		{domain.PlanStarter, "100", "2", "98"},
		{domain.PlanProfessional, "100", "1.5", "98.5"},
		{domain.PlanEnterprise, "100", "1", "99"},
		{domain.PlanFree, "33.33", "0.83", "32.5"},
	}

	for _, tc := range cases {
		amount, _ := decimal.NewFromString(tc.amount)
		q := engine.Quote(tc.plan, amount)

		wantFee, _ := decimal.NewFromString(tc.fee)
		wantNet, _ := decimal.NewFromString(tc.receives)
		if !q.Fee.Equal(wantFee) {
			t.Errorf("%s/%s: expected fee %s, got %s", tc.plan, tc.amount, wantFee, q.Fee)
		}
		if !q.MerchantReceives.Equal(wantNet) {
			t.Errorf("%s/%s: expected net %s, got %s", tc.plan, tc.amount, wantNet, q.MerchantReceives)
		}
	}
}

func TestQuote_UnknownPlanFallsBackToFree(t *testing.T) {
	engine, _ := NewEngine(nil)
	q := engine.Quote(domain.Plan("legacy"), decimal.NewFromInt(200))
	if !q.Fee.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected free-tier fee 5, got %s", q.Fee)
	}
}

func TestNewEngine_ConfigOverride(t *testing.T) {
	engine, err := NewEngine(map[string]string{"starter": "1.75"})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if !engine.Percentage(domain.PlanStarter).Equal(decimal.NewFromFloat(1.75)) {
		t.Errorf("expected overridden 1.75, got %s", engine.Percentage(domain.PlanStarter))
	}
	// Untouched plans keep defaults.
	if !engine.Percentage(domain.PlanFree).Equal(decimal.NewFromFloat(2.5)) {
		t.Errorf("expected default 2.5, got %s", engine.Percentage(domain.PlanFree))
	}
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	if _, err := NewEngine(map[string]string{"gold": "1.0"}); err == nil {
		t.Error("expected error for unknown plan")
	}
	if _, err := NewEngine(map[string]string{"free": "abc"}); err == nil {
		t.Error("expected error for unparseable percentage")
	}
	if _, err := NewEngine(map[string]string{"free": "-1"}); err == nil {
		t.Error("expected error for negative percentage")
	}
}
