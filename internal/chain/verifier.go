package chain

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

// Expected is what a submitted transaction must pay, and where. The
// currency decides whether settlement is native coin or an ERC-20
// token transfer.
type Expected struct {
	Recipient string
	Amount    decimal.Decimal
	Currency  domain.Currency
}

// Verification is the settlement metadata extracted from a verified
// transaction.
type Verification struct {
	From        string
	BlockNumber uint64
	GasUsed     uint64
	GasPrice    string
}

// Verifier confirms a submitted transaction hash actually pays the
// expected recipient the expected amount on the expected network. It
// fails closed: any RPC error or receipt failure means the caller must
// not advance the transaction's state.
type Verifier struct {
	registry *Registry
	log      *slog.Logger
}

// NewVerifier creates a verifier over the network registry.
func NewVerifier(registry *Registry) *Verifier {
	return &Verifier{registry: registry, log: slog.Default()}
}

// Verify fetches the transaction and its receipt and checks recipient,
// amount and receipt status.
func (v *Verifier) Verify(ctx context.Context, network domain.Network, txHash string, expected Expected) (*Verification, error) {
	adapter, err := v.registry.AdapterFor(network)
	if err != nil {
		return nil, domain.Retryablef(domain.CodeChainUnavailable, err, "network %s unavailable", network)
	}

	detail, err := adapter.TransactionDetail(ctx, txHash)
	if err != nil {
		return nil, domain.Retryablef(domain.CodeChainUnavailable, err, "rpc failure on %s", network)
	}
	if detail == nil {
		return nil, domain.Retryablef(domain.CodeVerificationFailed, nil,
			"transaction %s not found on %s", txHash, network)
	}
	if !detail.Success {
		return nil, domain.Retryablef(domain.CodeVerificationFailed, nil,
			"transaction %s has no successful receipt on %s", txHash, network)
	}

	if token, ok := v.registry.TokenFor(network, expected.Currency); ok {
		if err := verifyTokenPayment(txHash, detail, token, expected); err != nil {
			return nil, err
		}
	} else if err := verifyNativePayment(txHash, detail, expected); err != nil {
		return nil, err
	}

	return &Verification{
		From:        detail.From,
		BlockNumber: detail.BlockNumber,
		GasUsed:     detail.GasUsed,
		GasPrice:    detail.GasPrice,
	}, nil
}

// verifyNativePayment checks coin outputs. UTXO chains report every
// output; account chains report the single to/value pair.
func verifyNativePayment(txHash string, detail *TxDetail, expected Expected) error {
	paid := detail.Value
	paidTo := detail.To
	if len(detail.Outputs) > 0 {
		paid = decimal.Zero
		paidTo = ""
		for _, out := range detail.Outputs {
			if equalAddress(out.To, expected.Recipient) {
				paid = paid.Add(out.Value)
				paidTo = out.To
			}
		}
	}

	if !equalAddress(paidTo, expected.Recipient) {
		return domain.Rejectf(domain.CodeVerificationFailed,
			"transaction %s pays %s, expected %s", txHash, detail.To, expected.Recipient)
	}
	if paid.LessThan(expected.Amount) {
		return domain.Rejectf(domain.CodeVerificationFailed,
			"transaction %s pays %s, expected at least %s", txHash, paid, expected.Amount)
	}
	return nil
}

// verifyTokenPayment checks the receipt's Transfer events against the
// expected token contract and recipient. The native value of a token
// payment is zero and its native recipient is the contract, so those
// fields are ignored here.
func verifyTokenPayment(txHash string, detail *TxDetail, token Token, expected Expected) error {
	paid := decimal.Zero
	found := false
	for _, tr := range detail.TokenTransfers {
		if !equalAddress(tr.Token, token.Address) || !equalAddress(tr.To, expected.Recipient) {
			continue
		}
		paid = paid.Add(tr.Value.Shift(-token.Decimals))
		found = true
	}

	if !found {
		return domain.Rejectf(domain.CodeVerificationFailed,
			"transaction %s has no %s transfer to %s", txHash, expected.Currency, expected.Recipient)
	}
	if paid.LessThan(expected.Amount) {
		return domain.Rejectf(domain.CodeVerificationFailed,
			"transaction %s pays %s %s, expected at least %s", txHash, paid, expected.Currency, expected.Amount)
	}
	return nil
}

// Confirmations computes current depth for a recorded block.
func (v *Verifier) Confirmations(ctx context.Context, network domain.Network, recordedBlock uint64) (uint64, error) {
	adapter, err := v.registry.AdapterFor(network)
	if err != nil {
		return 0, err
	}
	current, err := adapter.LatestBlock(ctx)
	if err != nil {
		return 0, domain.Retryablef(domain.CodeChainUnavailable, err, "height query failed on %s", network)
	}
	if current < recordedBlock {
		return 0, nil
	}
	return current - recordedBlock, nil
}

func equalAddress(a, b string) bool {
	return normalizeAddress(a) == normalizeAddress(b)
}
