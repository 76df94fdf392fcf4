package compliance

import (
	"context"

	"github.com/coinflow/payments/internal/core/domain"
)

// kycStage fails closed unless the merchant's identity verification is
// approved. Runs first so nothing downstream sees unverified merchants.
type kycStage struct{}

func (s *kycStage) Name() string { return "kyc" }

func (s *kycStage) Run(ctx context.Context, c *Context) error {
	if c.Req.Merchant.KYCStatus != domain.KYCApproved {
		return domain.Rejectf(domain.CodeKYCNotApproved,
			"merchant %s kyc status is %s", c.Req.Merchant.ID, c.Req.Merchant.KYCStatus)
	}
	c.Report.KYCVerified = true
	return nil
}
