package rates

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

// CryptoPrecision is the fixed decimal precision for derived crypto
// amounts.
const CryptoPrecision = 8

// Resolver maps a currency code to its USD rate. Implementations may be
// static tables or live price feeds; callers never care which.
type Resolver interface {
	Rate(ctx context.Context, currency domain.Currency) (decimal.Decimal, error)
}

// StaticResolver serves rates from a fixed table loaded at construction.
type StaticResolver struct {
	rates map[domain.Currency]decimal.Decimal
}

// NewStaticResolver parses a currency -> rate table (decimal strings).
func NewStaticResolver(table map[string]string) (*StaticResolver, error) {
	rates := make(map[domain.Currency]decimal.Decimal, len(table))
	for code, raw := range table {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		if rate.Sign() <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}
		rates[domain.Currency(code)] = rate
	}
	return &StaticResolver{rates: rates}, nil
}

// Rate returns the USD rate for currency.
func (r *StaticResolver) Rate(ctx context.Context, currency domain.Currency) (decimal.Decimal, error) {
	rate, ok := r.rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for currency %s", currency)
	}
	return rate, nil
}

// Convert derives the crypto amount owed for a fiat amount at the given
// rate, rounded to the fixed precision. The result is computed once at
// creation and frozen into the transaction.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.DivRound(rate, CryptoPrecision)
}
