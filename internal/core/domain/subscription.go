package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a merchant subscription tier. It drives the platform fee
// percentage looked up by the fee engine.
type Plan string

const (
	PlanFree         Plan = "free"
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

// ValidPlans is the closed set of subscription tiers.
var ValidPlans = map[Plan]bool{
	PlanFree:         true,
	PlanStarter:      true,
	PlanProfessional: true,
	PlanEnterprise:   true,
}

// BillingStatus is the outcome of one billing attempt.
type BillingStatus string

const (
	BillingPaid    BillingStatus = "paid"
	BillingPending BillingStatus = "pending"
	BillingFailed  BillingStatus = "failed"
	BillingWaived  BillingStatus = "waived"
)

// BillingRecord is one append-only entry in a subscription's history.
type BillingRecord struct {
	Amount   decimal.Decimal `json:"amount"`
	Status   BillingStatus   `json:"status"`
	BilledAt time.Time       `json:"billed_at"`
}

// Subscription is created on merchant signup (defaulting to the free
// plan) and never deleted, only marked canceled.
type Subscription struct {
	ID         string          `json:"id"`
	MerchantID string          `json:"merchant_id"`
	Plan       Plan            `json:"plan"`
	Amount     decimal.Decimal `json:"amount"`
	Canceled   bool            `json:"canceled"`

	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`

	BillingHistory []BillingRecord `json:"billing_history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
