package evm

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

type mockClient struct {
	responses map[string]any
}

func (m *mockClient) Call(ctx context.Context, method string, params []any) (any, error) {
	return m.responses[method], nil
}

func TestLatestBlock(t *testing.T) {
	client := &mockClient{responses: map[string]any{
		"eth_blockNumber": "0x10d4f",
	}}
	adapter := NewAdapter(domain.NetworkEthereum, client, 12)

	height, err := adapter.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("LatestBlock failed: %v", err)
	}
	if height != 0x10d4f {
		t.Errorf("expected %d, got %d", 0x10d4f, height)
	}
}

func TestTransactionDetail_ParsesValueAndReceipt(t *testing.T) {
	client := &mockClient{responses: map[string]any{
		"eth_getTransactionByHash": map[string]any{
			"from": "0xPayer000000000000000000000000000000000001",
			"to":   "0xMerchant0000000000000000000000000000002",
			// 0.05 ETH in wei
			"value": "0xb1a2bc2ec50000",
		},
		"eth_getTransactionReceipt": map[string]any{
			"status":            "0x1",
			"blockNumber":       "0x64",
			"gasUsed":           "0x5208",
			"effectiveGasPrice": "0x6fc23ac00",
		},
	}}
	adapter := NewAdapter(domain.NetworkEthereum, client, 12)

	detail, err := adapter.TransactionDetail(context.Background(), "0xhash")
	if err != nil {
		t.Fatalf("TransactionDetail failed: %v", err)
	}

	if !detail.Value.Equal(decimal.NewFromFloat(0.05)) {
		t.Errorf("expected value 0.05, got %s", detail.Value)
	}
	if !detail.Success {
		t.Error("expected success from status 0x1")
	}
	if detail.BlockNumber != 100 {
		t.Errorf("expected block 100, got %d", detail.BlockNumber)
	}
	if detail.GasUsed != 21000 {
		t.Errorf("expected gas 21000, got %d", detail.GasUsed)
	}
	if detail.GasPrice != "30000000000" {
		t.Errorf("expected gas price 30000000000, got %s", detail.GasPrice)
	}
	// Addresses are lowercased for comparison.
	if detail.From != "0xpayer000000000000000000000000000000000001" {
		t.Errorf("expected lowercased from, got %s", detail.From)
	}
}

func TestTransactionDetail_ParsesTransferLogs(t *testing.T) {
	// A 100 USDC payment: native value zero, native recipient is the
	// token contract, the payment itself is a Transfer event.
	client := &mockClient{responses: map[string]any{
		"eth_getTransactionByHash": map[string]any{
			"from":  "0xPayer000000000000000000000000000000000001",
			"to":    "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
			"value": "0x0",
		},
		"eth_getTransactionReceipt": map[string]any{
			"status":      "0x1",
			"blockNumber": "0x64",
			"gasUsed":     "0xfde8",
			"logs": []any{
				// Unrelated event, skipped.
				map[string]any{
					"address": "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
					"topics":  []any{"0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"},
					"data":    "0x0",
				},
				map[string]any{
					"address": "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
					"topics": []any{
						"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
						"0x000000000000000000000000aaaa000000000000000000000000000000000001",
						"0x0000000000000000000000001111111111111111111111111111111111111111",
					},
					// 100 USDC at 6 decimals.
					"data": "0x0000000000000000000000000000000000000000000000000000000005f5e100",
				},
			},
		},
	}}
	adapter := NewAdapter(domain.NetworkPolygon, client, 20)

	detail, err := adapter.TransactionDetail(context.Background(), "0xhash")
	if err != nil {
		t.Fatalf("TransactionDetail failed: %v", err)
	}

	if !detail.Value.IsZero() {
		t.Errorf("token payment should carry zero native value, got %s", detail.Value)
	}
	if len(detail.TokenTransfers) != 1 {
		t.Fatalf("expected one transfer event, got %d", len(detail.TokenTransfers))
	}
	tr := detail.TokenTransfers[0]
	if tr.Token != "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359" {
		t.Errorf("expected lowercased contract, got %s", tr.Token)
	}
	if tr.To != "0x1111111111111111111111111111111111111111" {
		t.Errorf("expected recipient unpacked from topic, got %s", tr.To)
	}
	if !tr.Value.Equal(decimal.NewFromInt(100_000_000)) {
		t.Errorf("expected raw value 100000000, got %s", tr.Value)
	}
}

func TestTransactionDetail_UnknownHash(t *testing.T) {
	client := &mockClient{responses: map[string]any{}}
	adapter := NewAdapter(domain.NetworkEthereum, client, 12)

	detail, err := adapter.TransactionDetail(context.Background(), "0xmissing")
	if err != nil {
		t.Fatalf("TransactionDetail failed: %v", err)
	}
	if detail != nil {
		t.Errorf("expected nil for unknown hash, got %+v", detail)
	}
}

func TestTransactionDetail_PendingHasNoSuccess(t *testing.T) {
	client := &mockClient{responses: map[string]any{
		"eth_getTransactionByHash": map[string]any{
			"from":  "0xa",
			"to":    "0xb",
			"value": "0x0",
		},
		// No receipt yet: still in the mempool.
	}}
	adapter := NewAdapter(domain.NetworkEthereum, client, 12)

	detail, err := adapter.TransactionDetail(context.Background(), "0xhash")
	if err != nil {
		t.Fatalf("TransactionDetail failed: %v", err)
	}
	if detail == nil || detail.Success {
		t.Errorf("pending transaction must not report success: %+v", detail)
	}
}

func TestTransactionDetail_RevertedReceipt(t *testing.T) {
	client := &mockClient{responses: map[string]any{
		"eth_getTransactionByHash": map[string]any{
			"from": "0xa", "to": "0xb", "value": "0x0",
		},
		"eth_getTransactionReceipt": map[string]any{
			"status":      "0x0",
			"blockNumber": "0x64",
		},
	}}
	adapter := NewAdapter(domain.NetworkEthereum, client, 12)

	detail, err := adapter.TransactionDetail(context.Background(), "0xhash")
	if err != nil {
		t.Fatalf("TransactionDetail failed: %v", err)
	}
	if detail.Success {
		t.Error("reverted receipt must not report success")
	}
}
