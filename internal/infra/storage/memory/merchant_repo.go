package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

// MerchantRepo implements storage.MerchantRepository in memory.
type MerchantRepo struct {
	store *MemoryStorage
}

// NewMerchantRepo creates an in-memory merchant repository.
func NewMerchantRepo(store *MemoryStorage) *MerchantRepo {
	return &MerchantRepo{store: store}
}

func (r *MerchantRepo) GetByID(ctx context.Context, id string) (*domain.Merchant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	m, ok := r.store.merchants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MerchantRepo) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.merchants {
		if m.APIKey != "" && m.APIKey == apiKey {
			cp := *m
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// SubscriptionRepo implements storage.SubscriptionRepository in memory.
type SubscriptionRepo struct {
	store *MemoryStorage
}

// NewSubscriptionRepo creates an in-memory subscription repository.
func NewSubscriptionRepo(store *MemoryStorage) *SubscriptionRepo {
	return &SubscriptionRepo{store: store}
}

func (r *SubscriptionRepo) GetByMerchant(ctx context.Context, merchantID string) (*domain.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, sub := range r.store.subscriptions {
		if sub.MerchantID == merchantID {
			cp := *sub
			cp.BillingHistory = append([]domain.BillingRecord(nil), sub.BillingHistory...)
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *SubscriptionRepo) UpdatePlan(ctx context.Context, merchantID string, plan domain.Plan, amount decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, sub := range r.store.subscriptions {
		if sub.MerchantID == merchantID && !sub.Canceled {
			sub.Plan = plan
			sub.Amount = amount
			sub.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *SubscriptionRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var due []*domain.Subscription
	for _, sub := range r.store.subscriptions {
		if !sub.Canceled && !sub.CurrentPeriodEnd.After(now) {
			cp := *sub
			cp.BillingHistory = append([]domain.BillingRecord(nil), sub.BillingHistory...)
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (r *SubscriptionRepo) Rollover(ctx context.Context, id string, periodStart, periodEnd time.Time, rec domain.BillingRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sub, ok := r.store.subscriptions[id]
	if !ok || sub.Canceled {
		return domain.ErrNotFound
	}
	sub.CurrentPeriodStart = periodStart
	sub.CurrentPeriodEnd = periodEnd
	sub.BillingHistory = append(sub.BillingHistory, rec)
	sub.UpdatedAt = time.Now().UTC()
	return nil
}
