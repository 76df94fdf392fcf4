package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/config"
	"github.com/coinflow/payments/internal/core/domain"
)

// TierLimits caps one risk tier.
type TierLimits struct {
	Single  decimal.Decimal
	Daily   decimal.Decimal
	Monthly decimal.Decimal
}

// Config is the parsed compliance configuration: the risk-tier limit
// table plus AML and EDD thresholds. Injected, never global.
type Config struct {
	Limits       map[domain.RiskLevel]TierLimits
	EDDThreshold decimal.Decimal
	AMLMediumAt  decimal.Decimal
	AMLHighAt    decimal.Decimal
}

// DefaultConfig returns the platform default limit table.
func DefaultConfig() Config {
	return Config{
		Limits: map[domain.RiskLevel]TierLimits{
			domain.RiskLow: {
				Single:  decimal.NewFromInt(10_000),
				Daily:   decimal.NewFromInt(50_000),
				Monthly: decimal.NewFromInt(500_000),
			},
			domain.RiskMedium: {
				Single:  decimal.NewFromInt(5_000),
				Daily:   decimal.NewFromInt(25_000),
				Monthly: decimal.NewFromInt(250_000),
			},
			domain.RiskHigh: {
				Single:  decimal.NewFromFloat(2_500),
				Daily:   decimal.NewFromInt(10_000),
				Monthly: decimal.NewFromInt(100_000),
			},
		},
		EDDThreshold: decimal.NewFromInt(10_000),
		AMLMediumAt:  decimal.NewFromInt(3_000),
		AMLHighAt:    decimal.NewFromInt(10_000),
	}
}

// ParseConfig builds a Config from the YAML representation, falling back
// to defaults for anything unset.
func ParseConfig(raw config.ComplianceConfig) (Config, error) {
	cfg := DefaultConfig()

	for tier, caps := range raw.Limits {
		parsed := TierLimits{}
		var err error
		if parsed.Single, err = decimal.NewFromString(caps.Single); err != nil {
			return Config{}, fmt.Errorf("invalid single limit for tier %s: %w", tier, err)
		}
		if parsed.Daily, err = decimal.NewFromString(caps.Daily); err != nil {
			return Config{}, fmt.Errorf("invalid daily limit for tier %s: %w", tier, err)
		}
		if parsed.Monthly, err = decimal.NewFromString(caps.Monthly); err != nil {
			return Config{}, fmt.Errorf("invalid monthly limit for tier %s: %w", tier, err)
		}
		cfg.Limits[domain.RiskLevel(tier)] = parsed
	}

	if raw.EDDThreshold != "" {
		v, err := decimal.NewFromString(raw.EDDThreshold)
		if err != nil {
			return Config{}, fmt.Errorf("invalid edd threshold: %w", err)
		}
		cfg.EDDThreshold = v
	}
	if raw.AMLMediumAt != "" {
		v, err := decimal.NewFromString(raw.AMLMediumAt)
		if err != nil {
			return Config{}, fmt.Errorf("invalid aml medium threshold: %w", err)
		}
		cfg.AMLMediumAt = v
	}
	if raw.AMLHighAt != "" {
		v, err := decimal.NewFromString(raw.AMLHighAt)
		if err != nil {
			return Config{}, fmt.Errorf("invalid aml high threshold: %w", err)
		}
		cfg.AMLHighAt = v
	}

	return cfg, nil
}

// Gate is the compliance gate: an ordered stage pipeline producing an
// immutable report, or a rejection with no side effects.
type Gate struct {
	pipeline *Pipeline
	usage    UsageSource
}

// NewGate wires the standard stage order: KYC -> AML -> limits -> EDD.
func NewGate(cfg Config, usage UsageSource) *Gate {
	return &Gate{
		pipeline: NewPipeline(
			&kycStage{},
			&amlStage{cfg: cfg},
			&limitsStage{cfg: cfg},
			&eddStage{cfg: cfg},
		),
		usage: usage,
	}
}

// Screen runs the full gate for one payment request. On success the
// returned report is attached to the transaction and never mutated
// again. On failure nothing has been persisted.
func (g *Gate) Screen(ctx context.Context, req Request) (domain.ComplianceReport, error) {
	c := &Context{Req: req}

	now := time.Now().UTC()
	dayStart := now.Truncate(24 * time.Hour)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	daily, err := g.usage.MerchantUsage(ctx, req.Merchant.ID, dayStart)
	if err != nil {
		return domain.ComplianceReport{}, fmt.Errorf("load daily usage: %w", err)
	}
	monthly, err := g.usage.MerchantUsage(ctx, req.Merchant.ID, monthStart)
	if err != nil {
		return domain.ComplianceReport{}, fmt.Errorf("load monthly usage: %w", err)
	}
	c.Usage = Usage{Daily: daily, Monthly: monthly}

	if err := g.pipeline.Run(ctx, c); err != nil {
		return domain.ComplianceReport{}, err
	}

	c.Report.ScreenedAt = now
	return c.Report, nil
}
