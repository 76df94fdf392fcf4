package domain

import "time"

// KYCStatus is the merchant identity-verification state.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCApproved KYCStatus = "approved"
	KYCRejected KYCStatus = "rejected"
)

// Merchant is a platform tenant. The engine never mutates merchants;
// it reads them to gate and route payments.
type Merchant struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	BusinessName string    `json:"business_name"`
	KYCStatus    KYCStatus `json:"kyc_status"`
	RiskLevel    RiskLevel `json:"risk_level"`

	// PayoutWallet receives settled funds. Empty means the merchant
	// cannot accept payments yet.
	PayoutWallet string `json:"payout_wallet"`

	// PreferredNetwork overrides the currency routing table when set.
	PreferredNetwork Network `json:"preferred_network,omitempty"`

	APIKey         string   `json:"api_key,omitempty"`
	AllowedDomains []string `json:"allowed_domains,omitempty"`

	// ManualReviewApproved satisfies enhanced due diligence for
	// high-risk merchants and large amounts.
	ManualReviewApproved bool `json:"manual_review_approved"`

	CreatedAt time.Time `json:"created_at"`
}

// DomainAllowed reports whether origin is whitelisted for widget
// payments. An empty whitelist allows nothing.
func (m *Merchant) DomainAllowed(origin string) bool {
	for _, d := range m.AllowedDomains {
		if d == origin {
			return true
		}
	}
	return false
}
