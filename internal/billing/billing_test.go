package billing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
	"github.com/coinflow/payments/internal/fees"
	"github.com/coinflow/payments/internal/infra/storage/memory"
)

func TestChangePlan(t *testing.T) {
	store := memory.NewMemoryStorage()
	store.AddSubscription(&domain.Subscription{
		ID:         "sub-1",
		MerchantID: "m-1",
		Plan:       domain.PlanFree,
	})
	subs := memory.NewSubscriptionRepo(store)

	engine, _ := fees.NewEngine(nil)
	svc := NewService(subs, engine, nil)

	if err := svc.ChangePlan(context.Background(), "m-1", domain.PlanProfessional); err != nil {
		t.Fatalf("ChangePlan failed: %v", err)
	}

	sub, err := subs.GetByMerchant(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("GetByMerchant failed: %v", err)
	}
	if sub.Plan != domain.PlanProfessional {
		t.Errorf("expected professional, got %s", sub.Plan)
	}
	if !sub.Amount.Equal(decimal.NewFromInt(99)) {
		t.Errorf("expected monthly price 99, got %s", sub.Amount)
	}
}

func TestChangePlan_RejectsUnknownPlan(t *testing.T) {
	store := memory.NewMemoryStorage()
	subs := memory.NewSubscriptionRepo(store)
	engine, _ := fees.NewEngine(nil)
	svc := NewService(subs, engine, nil)

	err := svc.ChangePlan(context.Background(), "m-1", domain.Plan("platinum"))
	if err == nil {
		t.Fatal("expected rejection for unknown plan")
	}
	if _, ok := domain.AsError(err); !ok {
		t.Errorf("expected engine error, got %v", err)
	}
}

func TestWorker_RolloverAppendsHistory(t *testing.T) {
	store := memory.NewMemoryStorage()
	now := time.Now().UTC()

	store.AddSubscription(&domain.Subscription{
		ID:                 "sub-paid",
		MerchantID:         "m-1",
		Plan:               domain.PlanStarter,
		Amount:             decimal.NewFromInt(29),
		CurrentPeriodStart: now.AddDate(0, 0, -31),
		CurrentPeriodEnd:   now.AddDate(0, 0, -1),
	})
	store.AddSubscription(&domain.Subscription{
		ID:                 "sub-free",
		MerchantID:         "m-2",
		Plan:               domain.PlanFree,
		Amount:             decimal.Zero,
		CurrentPeriodStart: now.AddDate(0, 0, -31),
		CurrentPeriodEnd:   now.AddDate(0, 0, -1),
	})
	store.AddSubscription(&domain.Subscription{
		ID:                 "sub-current",
		MerchantID:         "m-3",
		Plan:               domain.PlanStarter,
		Amount:             decimal.NewFromInt(29),
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 0, 29),
	})

	subs := memory.NewSubscriptionRepo(store)
	w := NewWorker(subs, time.Hour, 30)
	w.rollover(context.Background())

	paid, _ := subs.GetByMerchant(context.Background(), "m-1")
	if len(paid.BillingHistory) != 1 {
		t.Fatalf("expected 1 billing record, got %d", len(paid.BillingHistory))
	}
	if paid.BillingHistory[0].Status != domain.BillingPending {
		t.Errorf("paid plan should bill pending, got %s", paid.BillingHistory[0].Status)
	}
	wantEnd := now.AddDate(0, 0, 29)
	if !paid.CurrentPeriodEnd.Equal(wantEnd) {
		t.Errorf("expected period end %s, got %s", wantEnd, paid.CurrentPeriodEnd)
	}

	free, _ := subs.GetByMerchant(context.Background(), "m-2")
	if len(free.BillingHistory) != 1 || free.BillingHistory[0].Status != domain.BillingWaived {
		t.Errorf("free plan should be waived, got %+v", free.BillingHistory)
	}

	current, _ := subs.GetByMerchant(context.Background(), "m-3")
	if len(current.BillingHistory) != 0 {
		t.Errorf("in-period subscription must not roll over, got %d records", len(current.BillingHistory))
	}
}
