package compliance

import (
	"context"

	"github.com/coinflow/payments/internal/core/domain"
)

// limitsStage enforces the per-transaction, daily and monthly caps of
// the risk tier established by the AML stage.
type limitsStage struct {
	cfg Config
}

func (s *limitsStage) Name() string { return "limits" }

func (s *limitsStage) Run(ctx context.Context, c *Context) error {
	caps, ok := s.cfg.Limits[c.Report.RiskLevel]
	if !ok {
		// Unknown tier gets the tightest caps rather than none.
		caps = s.cfg.Limits[domain.RiskHigh]
	}

	c.Report.SingleLimit = caps.Single
	c.Report.DailyLimit = caps.Daily
	c.Report.MonthlyLimit = caps.Monthly

	if c.Req.Amount.GreaterThan(caps.Single) {
		return domain.Rejectf(domain.CodeLimitExceeded,
			"amount %s exceeds single-transaction limit %s for %s risk",
			c.Req.Amount, caps.Single, c.Report.RiskLevel)
	}
	if c.Usage.Daily.Add(c.Req.Amount).GreaterThan(caps.Daily) {
		return domain.Rejectf(domain.CodeLimitExceeded,
			"amount %s would exceed daily limit %s for %s risk",
			c.Req.Amount, caps.Daily, c.Report.RiskLevel)
	}
	if c.Usage.Monthly.Add(c.Req.Amount).GreaterThan(caps.Monthly) {
		return domain.Rejectf(domain.CodeLimitExceeded,
			"amount %s would exceed monthly limit %s for %s risk",
			c.Req.Amount, caps.Monthly, c.Report.RiskLevel)
	}
	return nil
}
