package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the lifecycle state of a payment transaction.
type TxStatus string

const (
	TxStatusPending    TxStatus = "pending"
	TxStatusProcessing TxStatus = "processing"
	TxStatusCompleted  TxStatus = "completed"
	TxStatusFailed     TxStatus = "failed"
	TxStatusRefunded   TxStatus = "refunded"
)

// legalTransitions enumerates every reachable status edge. Anything not
// listed here is rejected by CanTransition.
var legalTransitions = map[TxStatus][]TxStatus{
	TxStatusPending:    {TxStatusProcessing, TxStatusFailed},
	TxStatusProcessing: {TxStatusCompleted, TxStatusFailed},
	TxStatusCompleted:  {TxStatusRefunded},
}

// CanTransition reports whether from -> to is a legal status edge.
func CanTransition(from, to TxStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RiskLevel classifies a merchant or a single payment after AML screening.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ComplianceReport is the immutable audit snapshot attached to a
// transaction before it is first persisted. It is never mutated afterward.
type ComplianceReport struct {
	KYCVerified    bool            `json:"kyc_verified"`
	AMLChecked     bool            `json:"aml_checked"`
	RiskScore      int             `json:"risk_score"`
	RiskLevel      RiskLevel       `json:"risk_level"`
	AMLReport      string          `json:"aml_report,omitempty"`
	EnhancedDueDil bool            `json:"enhanced_due_diligence"`
	PendingReview  bool            `json:"pending_review"`
	SingleLimit    decimal.Decimal `json:"single_limit"`
	DailyLimit     decimal.Decimal `json:"daily_limit"`
	MonthlyLimit   decimal.Decimal `json:"monthly_limit"`
	ScreenedAt     time.Time       `json:"screened_at"`
}

// RefundInfo is populated exactly once, on the completed -> refunded edge.
type RefundInfo struct {
	Reason     string    `json:"reason"`
	RefundedAt time.Time `json:"refunded_at"`
}

// Transaction is the central persisted entity: one payment attempt from a
// merchant request through on-chain settlement.
type Transaction struct {
	ID         string `json:"id"`
	MerchantID string `json:"merchant_id"`

	CustomerEmail  string `json:"customer_email,omitempty"`
	CustomerWallet string `json:"customer_wallet,omitempty"`

	Amount       decimal.Decimal `json:"amount"`
	Currency     Currency        `json:"currency"`
	CryptoAmount decimal.Decimal `json:"crypto_amount"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`

	Network   Network `json:"network"`
	ToAddress string  `json:"to_address"`

	TxHash      string `json:"tx_hash,omitempty"`
	FromAddress string `json:"from_address,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	GasPrice    string `json:"gas_price,omitempty"`

	ConfirmationCount     uint64 `json:"confirmation_count"`
	RequiredConfirmations uint64 `json:"required_confirmations"`

	Status TxStatus `json:"status"`

	Compliance ComplianceReport `json:"compliance"`

	PlatformFee           decimal.Decimal `json:"platform_fee"`
	PlatformFeePercentage decimal.Decimal `json:"platform_fee_percentage"`
	MerchantPlan          Plan            `json:"merchant_plan,omitempty"`
	MerchantAmount        decimal.Decimal `json:"merchant_amount"`

	RefundInfo *RefundInfo `json:"refund_info,omitempty"`
	FailReason string      `json:"fail_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PublicView strips merchant-private fields for the unauthenticated
// status endpoint.
type PublicView struct {
	ID                    string          `json:"id"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              Currency        `json:"currency"`
	CryptoAmount          decimal.Decimal `json:"crypto_amount"`
	Network               Network         `json:"network"`
	ToAddress             string          `json:"to_address"`
	Status                TxStatus        `json:"status"`
	ConfirmationCount     uint64          `json:"confirmation_count"`
	RequiredConfirmations uint64          `json:"required_confirmations"`
	CreatedAt             time.Time       `json:"created_at"`
}

// Public returns the limited projection of t.
func (t *Transaction) Public() PublicView {
	return PublicView{
		ID:                    t.ID,
		Amount:                t.Amount,
		Currency:              t.Currency,
		CryptoAmount:          t.CryptoAmount,
		Network:               t.Network,
		ToAddress:             t.ToAddress,
		Status:                t.Status,
		ConfirmationCount:     t.ConfirmationCount,
		RequiredConfirmations: t.RequiredConfirmations,
		CreatedAt:             t.CreatedAt,
	}
}
