package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/chain"
	"github.com/coinflow/payments/internal/core/domain"
)

// weiDecimals shifts wei values into coin units.
const weiDecimals = 18

// keccak256("Transfer(address,address,uint256)"), the ERC-20 event
// signature in topic0.
const transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// RPCClient is the subset of the rpc client the adapter needs.
type RPCClient interface {
	Call(ctx context.Context, method string, params []any) (any, error)
}

// Adapter implements chain.Adapter for EVM-compatible networks.
type Adapter struct {
	network       domain.Network
	client        RPCClient
	confirmations uint64
}

// NewAdapter creates an EVM adapter.
func NewAdapter(network domain.Network, client RPCClient, confirmations uint64) *Adapter {
	return &Adapter{network: network, client: client, confirmations: confirmations}
}

func (a *Adapter) Network() domain.Network { return a.network }

func (a *Adapter) RequiredConfirmations() uint64 { return a.confirmations }

// LatestBlock returns the current chain height.
func (a *Adapter) LatestBlock(ctx context.Context) (uint64, error) {
	result, err := a.client.Call(ctx, "eth_blockNumber", []any{})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}

	blockHex, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("invalid block number response")
	}
	return parseHexUint(blockHex)
}

// TransactionDetail fetches the transaction and its receipt. Success
// requires receipt status 0x1; a missing receipt means the transaction
// is not mined yet.
func (a *Adapter) TransactionDetail(ctx context.Context, txHash string) (*chain.TxDetail, error) {
	result, err := a.client.Call(ctx, "eth_getTransactionByHash", []any{txHash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionByHash failed: %w", err)
	}
	if result == nil {
		return nil, nil // unknown transaction
	}

	rawTx, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid transaction format")
	}

	detail := &chain.TxDetail{
		Hash: txHash,
		From: strings.ToLower(getString(rawTx["from"])),
		To:   strings.ToLower(getString(rawTx["to"])),
	}

	if valueHex := getString(rawTx["value"]); valueHex != "" {
		wei, ok := new(big.Int).SetString(strings.TrimPrefix(valueHex, "0x"), 16)
		if !ok {
			return nil, fmt.Errorf("invalid value %q", valueHex)
		}
		detail.Value = decimal.NewFromBigInt(wei, -weiDecimals)
	}

	receipt, err := a.client.Call(ctx, "eth_getTransactionReceipt", []any{txHash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt failed: %w", err)
	}
	if receipt == nil {
		// Mined data is not available yet; report as unconfirmed.
		return detail, nil
	}

	rawReceipt, ok := receipt.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid receipt format")
	}

	detail.Success = getString(rawReceipt["status"]) == "0x1"
	detail.TokenTransfers = parseTransferLogs(rawReceipt["logs"])
	if blockHex := getString(rawReceipt["blockNumber"]); blockHex != "" {
		if detail.BlockNumber, err = parseHexUint(blockHex); err != nil {
			return nil, fmt.Errorf("invalid receipt block number: %w", err)
		}
	}
	if gasHex := getString(rawReceipt["gasUsed"]); gasHex != "" {
		if detail.GasUsed, err = parseHexUint(gasHex); err != nil {
			return nil, fmt.Errorf("invalid gas used: %w", err)
		}
	}
	if priceHex := getString(rawReceipt["effectiveGasPrice"]); priceHex != "" {
		price, ok := new(big.Int).SetString(strings.TrimPrefix(priceHex, "0x"), 16)
		if ok {
			detail.GasPrice = price.String()
		}
	}

	return detail, nil
}

// parseTransferLogs extracts ERC-20 Transfer events from receipt logs.
// An ERC-20 payment carries native value zero and pays the token
// contract, so the verifier reads these to find who really got paid.
func parseTransferLogs(rawLogs any) []chain.TokenTransfer {
	logs, ok := rawLogs.([]any)
	if !ok {
		return nil
	}

	var transfers []chain.TokenTransfer
	for _, l := range logs {
		entry, ok := l.(map[string]any)
		if !ok {
			continue
		}
		topics, ok := entry["topics"].([]any)
		if !ok || len(topics) != 3 || getString(topics[0]) != transferTopic {
			continue
		}
		raw, ok := new(big.Int).SetString(strings.TrimPrefix(getString(entry["data"]), "0x"), 16)
		if !ok {
			continue
		}
		transfers = append(transfers, chain.TokenTransfer{
			Token: strings.ToLower(getString(entry["address"])),
			From:  topicAddress(getString(topics[1])),
			To:    topicAddress(getString(topics[2])),
			Value: decimal.NewFromBigInt(raw, 0),
		})
	}
	return transfers
}

// topicAddress unpacks an address from a 32-byte indexed topic.
func topicAddress(topic string) string {
	t := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(t) < 40 {
		return ""
	}
	return "0x" + t[len(t)-40:]
}

func parseHexUint(s string) (uint64, error) {
	v, ok := new(big.Int).SetString(strings.TrimPrefix(s, "0x"), 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex number %q", s)
	}
	return v.Uint64(), nil
}

func getString(v any) string {
	s, _ := v.(string)
	return s
}
