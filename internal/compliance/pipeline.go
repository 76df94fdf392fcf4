package compliance

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

// Request is the input to the compliance gate: everything known about a
// payment before anything is persisted.
type Request struct {
	Merchant       *domain.Merchant
	Amount         decimal.Decimal
	Currency       domain.Currency
	CustomerEmail  string
	CustomerWallet string
}

// Usage is the merchant's already-settled volume inside the current
// daily and monthly windows, used by the limits stage.
type Usage struct {
	Daily   decimal.Decimal
	Monthly decimal.Decimal
}

// UsageSource reports merchant volume. Implemented by the transaction
// store.
type UsageSource interface {
	MerchantUsage(ctx context.Context, merchantID string, since time.Time) (decimal.Decimal, error)
}

// Context flows through the stage chain. Stages annotate the report;
// a stage error aborts the chain with no partial state visible outside.
type Context struct {
	Req    Request
	Usage  Usage
	Report domain.ComplianceReport
}

// Stage is one ordered step of the gate.
type Stage interface {
	Name() string
	Run(ctx context.Context, c *Context) error
}

// Pipeline runs stages strictly in order, short-circuiting on the first
// failure.
type Pipeline struct {
	stages []Stage
	log    *slog.Logger
}

// NewPipeline creates a pipeline over the given stages.
func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, log: slog.Default()}
}

// Run executes every stage in order. The first error aborts the chain.
func (p *Pipeline) Run(ctx context.Context, c *Context) error {
	for _, stage := range p.stages {
		if err := stage.Run(ctx, c); err != nil {
			p.log.Info("compliance stage rejected request",
				"stage", stage.Name(),
				"merchant", c.Req.Merchant.ID,
				"error", err)
			return err
		}
	}
	return nil
}
