package bitcoin

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/chain"
	"github.com/coinflow/payments/internal/core/domain"
)

// RPCClient is the subset of the rpc client the adapter needs.
type RPCClient interface {
	Call(ctx context.Context, method string, params []any) (any, error)
}

// Adapter implements chain.Adapter for Bitcoin Core style nodes.
type Adapter struct {
	network       domain.Network
	client        RPCClient
	confirmations uint64
}

// NewAdapter creates a Bitcoin adapter.
func NewAdapter(network domain.Network, client RPCClient, confirmations uint64) *Adapter {
	return &Adapter{network: network, client: client, confirmations: confirmations}
}

func (a *Adapter) Network() domain.Network { return a.network }

func (a *Adapter) RequiredConfirmations() uint64 { return a.confirmations }

// LatestBlock returns the current chain height.
func (a *Adapter) LatestBlock(ctx context.Context) (uint64, error) {
	result, err := a.client.Call(ctx, "getblockcount", []any{})
	if err != nil {
		return 0, fmt.Errorf("getblockcount failed: %w", err)
	}

	height, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid block count response")
	}
	return uint64(height), nil
}

// TransactionDetail fetches a transaction with verbose output and sums
// the outputs paying each address. Bitcoin has no receipt status; a
// mined transaction is a successful one.
func (a *Adapter) TransactionDetail(ctx context.Context, txHash string) (*chain.TxDetail, error) {
	result, err := a.client.Call(ctx, "getrawtransaction", []any{txHash, true})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such mempool or blockchain transaction") {
			return nil, nil
		}
		return nil, fmt.Errorf("getrawtransaction failed: %w", err)
	}

	raw, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid transaction format")
	}

	detail := &chain.TxDetail{Hash: txHash}

	// Record every output, summed per address. A wallet transaction
	// usually carries a change output back to the payer, often larger
	// than the payment itself, so the merchant's output cannot be
	// singled out here; the verifier matches by address.
	if vouts, ok := raw["vout"].([]any); ok {
		totals := make(map[string]decimal.Decimal)
		var order []string
		for _, v := range vouts {
			vout, ok := v.(map[string]any)
			if !ok {
				continue
			}
			value, err := decimal.NewFromString(fmt.Sprintf("%v", vout["value"]))
			if err != nil {
				continue
			}
			addr := outputAddress(vout)
			if addr == "" {
				continue
			}
			if _, seen := totals[addr]; !seen {
				order = append(order, addr)
			}
			totals[addr] = totals[addr].Add(value)
		}
		for _, addr := range order {
			detail.Outputs = append(detail.Outputs, chain.Output{To: addr, Value: totals[addr]})
		}
	}

	// Confirmed once included in a block.
	if blockHash, ok := raw["blockhash"].(string); ok && blockHash != "" {
		detail.Success = true
		height, err := a.blockHeight(ctx, blockHash)
		if err != nil {
			return nil, err
		}
		detail.BlockNumber = height
	}

	return detail, nil
}

func (a *Adapter) blockHeight(ctx context.Context, blockHash string) (uint64, error) {
	result, err := a.client.Call(ctx, "getblockheader", []any{blockHash})
	if err != nil {
		return 0, fmt.Errorf("getblockheader failed: %w", err)
	}
	header, ok := result.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("invalid block header format")
	}
	height, ok := header["height"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid block height")
	}
	return uint64(height), nil
}

func outputAddress(vout map[string]any) string {
	script, ok := vout["scriptPubKey"].(map[string]any)
	if !ok {
		return ""
	}
	if addr, ok := script["address"].(string); ok {
		return addr
	}
	// Older nodes return an addresses array
	if addrs, ok := script["addresses"].([]any); ok && len(addrs) > 0 {
		if addr, ok := addrs[0].(string); ok {
			return addr
		}
	}
	return ""
}
