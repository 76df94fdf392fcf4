package compliance

import (
	"context"
	"fmt"
	"strings"

	"github.com/coinflow/payments/internal/core/domain"
)

// amlStage screens the request and annotates a risk level. It never
// rejects; downstream stages act on the classification.
type amlStage struct {
	cfg Config
}

func (s *amlStage) Name() string { return "aml" }

func (s *amlStage) Run(ctx context.Context, c *Context) error {
	score := 0
	var notes []string

	// Merchant baseline
	switch c.Req.Merchant.RiskLevel {
	case domain.RiskHigh:
		score += 50
		notes = append(notes, "merchant classified high risk")
	case domain.RiskMedium:
		score += 25
		notes = append(notes, "merchant classified medium risk")
	}

	// Amount thresholds
	if c.Req.Amount.GreaterThanOrEqual(s.cfg.AMLHighAt) {
		score += 40
		notes = append(notes, fmt.Sprintf("amount %s at or above high threshold", c.Req.Amount))
	} else if c.Req.Amount.GreaterThanOrEqual(s.cfg.AMLMediumAt) {
		score += 20
		notes = append(notes, fmt.Sprintf("amount %s at or above medium threshold", c.Req.Amount))
	}

	// Counterpart heuristics
	if c.Req.CustomerEmail == "" {
		score += 10
		notes = append(notes, "no customer email supplied")
	}
	if c.Req.CustomerWallet != "" && !strings.HasPrefix(c.Req.CustomerWallet, "0x") &&
		c.Req.Currency != domain.CurrencyBTC {
		score += 10
		notes = append(notes, "customer wallet format unusual for currency")
	}

	level := domain.RiskLow
	switch {
	case score >= 50:
		level = domain.RiskHigh
	case score >= 25:
		level = domain.RiskMedium
	}

	c.Report.AMLChecked = true
	c.Report.RiskScore = score
	c.Report.RiskLevel = level
	c.Report.AMLReport = strings.Join(notes, "; ")
	return nil
}
