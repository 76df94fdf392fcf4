package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

// SubscriptionRepo implements storage.SubscriptionRepository using
// PostgreSQL. Billing history is an append-only JSONB column.
type SubscriptionRepo struct {
	db *DB
}

// NewSubscriptionRepo creates a new PostgreSQL subscription repository.
func NewSubscriptionRepo(db *DB) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

type subscriptionRow struct {
	ID             string          `db:"id"`
	MerchantID     string          `db:"merchant_id"`
	Plan           string          `db:"plan"`
	Amount         decimal.Decimal `db:"amount"`
	Canceled       bool            `db:"canceled"`
	PeriodStart    time.Time       `db:"current_period_start"`
	PeriodEnd      time.Time       `db:"current_period_end"`
	BillingHistory []byte          `db:"billing_history"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (r *subscriptionRow) toDomain() (*domain.Subscription, error) {
	sub := &domain.Subscription{
		ID:                 r.ID,
		MerchantID:         r.MerchantID,
		Plan:               domain.Plan(r.Plan),
		Amount:             r.Amount,
		Canceled:           r.Canceled,
		CurrentPeriodStart: r.PeriodStart,
		CurrentPeriodEnd:   r.PeriodEnd,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if len(r.BillingHistory) > 0 {
		if err := json.Unmarshal(r.BillingHistory, &sub.BillingHistory); err != nil {
			return nil, fmt.Errorf("decode billing history: %w", err)
		}
	}
	return sub, nil
}

const subscriptionColumns = `
	id, merchant_id, plan, amount, canceled,
	current_period_start, current_period_end, billing_history,
	created_at, updated_at`

// GetByMerchant retrieves a merchant's subscription.
func (r *SubscriptionRepo) GetByMerchant(ctx context.Context, merchantID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE merchant_id = $1`

	var row subscriptionRow
	err := r.db.GetContext(ctx, &row, query, merchantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return row.toDomain()
}

// UpdatePlan changes the subscription tier.
func (r *SubscriptionRepo) UpdatePlan(ctx context.Context, merchantID string, plan domain.Plan, amount decimal.Decimal) error {
	query := `
		UPDATE subscriptions SET plan = $2, amount = $3, updated_at = NOW()
		WHERE merchant_id = $1 AND NOT canceled
	`
	res, err := r.db.ExecContext(ctx, query, merchantID, string(plan), amount)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDue returns active subscriptions whose billing period has ended.
func (r *SubscriptionRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE NOT canceled AND current_period_end <= $1
		ORDER BY current_period_end ASC`

	var rows []subscriptionRow
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	subs := make([]*domain.Subscription, 0, len(rows))
	for i := range rows {
		sub, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Rollover advances the billing period and appends the billing record
// atomically.
func (r *SubscriptionRepo) Rollover(ctx context.Context, id string, periodStart, periodEnd time.Time, rec domain.BillingRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode billing record: %w", err)
	}

	query := `
		UPDATE subscriptions SET
			current_period_start = $2,
			current_period_end = $3,
			billing_history = COALESCE(billing_history, '[]'::jsonb) || $4::jsonb,
			updated_at = NOW()
		WHERE id = $1 AND NOT canceled
	`
	res, err := r.db.ExecContext(ctx, query, id, periodStart, periodEnd, encoded)
	if err != nil {
		return fmt.Errorf("failed to roll over subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
