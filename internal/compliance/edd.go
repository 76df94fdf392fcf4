package compliance

import (
	"context"

	"github.com/coinflow/payments/internal/core/domain"
)

// eddStage applies enhanced due diligence: high-risk merchants and
// amounts at or above the configured threshold need a manual-review
// approval. Without one the transaction is still created but marked
// pending review instead of immediately payable.
type eddStage struct {
	cfg Config
}

func (s *eddStage) Name() string { return "edd" }

func (s *eddStage) Run(ctx context.Context, c *Context) error {
	needsEDD := c.Report.RiskLevel == domain.RiskHigh ||
		c.Req.Amount.GreaterThanOrEqual(s.cfg.EDDThreshold)
	if !needsEDD {
		return nil
	}

	c.Report.EnhancedDueDil = true
	if !c.Req.Merchant.ManualReviewApproved {
		c.Report.PendingReview = true
	}
	return nil
}
