package chain

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

// TxDetail is the settlement-relevant view of one on-chain transaction:
// who paid whom how much, where it landed, and what it cost.
type TxDetail struct {
	Hash        string
	From        string
	To          string
	Value       decimal.Decimal // native coin units
	BlockNumber uint64
	GasUsed     uint64
	GasPrice    string
	Success     bool

	// Outputs carries every native-coin output of a UTXO transaction,
	// summed per address. A wallet payment usually has a change output
	// back to the payer, so the verifier must match by address, not
	// size.
	Outputs []Output

	// TokenTransfers carries the ERC-20 Transfer events found in the
	// receipt. A token payment has native value zero and pays the token
	// contract, so verification reads these instead.
	TokenTransfers []TokenTransfer
}

// Output is one native-coin output of a UTXO transaction.
type Output struct {
	To    string
	Value decimal.Decimal
}

// TokenTransfer is one ERC-20 Transfer event. Value is in raw token
// units; the verifier scales by the token's decimals.
type TokenTransfer struct {
	Token string
	From  string
	To    string
	Value decimal.Decimal
}

// Adapter is the chain-level boundary between the lifecycle engine and
// network-specific RPC semantics.
type Adapter interface {
	// Network returns the network this adapter serves
	Network() domain.Network

	// LatestBlock returns the current chain height
	LatestBlock(ctx context.Context) (uint64, error)

	// TransactionDetail fetches a transaction and its receipt.
	// Returns nil when the transaction is unknown to the chain.
	TransactionDetail(ctx context.Context, txHash string) (*TxDetail, error)

	// RequiredConfirmations returns the finality depth for this network
	RequiredConfirmations() uint64
}
