package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

// Submission is the on-chain data linked to a transaction when the
// customer submits payment.
type Submission struct {
	TxHash      string
	FromAddress string
	BlockNumber uint64
	GasUsed     uint64
	GasPrice    string
}

// Settlement carries the fee fields written exactly once at the
// processing -> completed transition.
type Settlement struct {
	PlatformFee    decimal.Decimal
	Percentage     decimal.Decimal
	MerchantPlan   domain.Plan
	MerchantAmount decimal.Decimal
}

// TransactionRepository is the sole authority for persisted transaction
// state. Every status transition is a conditional update guarded on the
// expected current status, so concurrent callers serialize per id.
type TransactionRepository interface {
	// Create persists a new transaction with status pending
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByID retrieves a transaction
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)

	// GetByTxHash finds the transaction a submission hash is attached
	// to. Returns domain.ErrNotFound for an unknown hash.
	GetByTxHash(ctx context.Context, txHash string) (*domain.Transaction, error)

	// AttachSubmission links a customer submission, transitioning
	// pending -> processing. Returns domain.ErrAlreadyProcessed when the
	// transaction is not pending; exactly one concurrent caller wins.
	AttachSubmission(ctx context.Context, id string, sub Submission) error

	// SetCustomerWallet records the payer's wallet, pending only.
	SetCustomerWallet(ctx context.Context, id, wallet, email string) error

	// RecordConfirmation idempotently updates the confirmation counter.
	RecordConfirmation(ctx context.Context, id string, confirmations uint64) error

	// Complete transitions processing -> completed, writing the fee
	// fields and the completed timestamp in the same guarded update.
	// Returns false when another caller already completed it.
	Complete(ctx context.Context, id string, s Settlement) (bool, error)

	// Fail transitions pending/processing -> failed.
	Fail(ctx context.Context, id, reason string) error

	// Refund transitions completed -> refunded, appending refund info.
	// Returns domain.ErrNotRefundable for any other current status.
	Refund(ctx context.Context, id string, info domain.RefundInfo) error

	// ListByStatus returns transactions in a given status, oldest first.
	ListByStatus(ctx context.Context, status domain.TxStatus) ([]*domain.Transaction, error)

	// FailExpiredPending marks pending transactions created before the
	// cutoff failed, returning how many were swept.
	FailExpiredPending(ctx context.Context, cutoff time.Time) (int64, error)

	// MerchantUsage sums completed+in-flight volume since a point in
	// time, for compliance limit enforcement.
	MerchantUsage(ctx context.Context, merchantID string, since time.Time) (decimal.Decimal, error)
}

// MerchantRepository reads merchant tenants. The engine never writes
// merchants.
type MerchantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Merchant, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Merchant, error)
}

// SubscriptionRepository owns subscription state and the append-only
// billing history.
type SubscriptionRepository interface {
	GetByMerchant(ctx context.Context, merchantID string) (*domain.Subscription, error)

	// UpdatePlan changes the tier; already-completed transactions keep
	// their frozen fees regardless.
	UpdatePlan(ctx context.Context, merchantID string, plan domain.Plan, amount decimal.Decimal) error

	// ListDue returns active subscriptions whose period ended at or
	// before now.
	ListDue(ctx context.Context, now time.Time) ([]*domain.Subscription, error)

	// Rollover advances the billing period and appends a billing record.
	Rollover(ctx context.Context, id string, periodStart, periodEnd time.Time, rec domain.BillingRecord) error
}
