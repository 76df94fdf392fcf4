package bitcoin

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

func TestTransactionDetail_RecordsEveryOutput(t *testing.T) {
	// Change back to the payer is larger than the payment itself, the
	// common wallet shape.
	client := &mockClient{responses: map[string]any{
		"getrawtransaction": map[string]any{
			"vout": []any{
				map[string]any{
					"value": 0.9,
					"scriptPubKey": map[string]any{
						"address": "bc1qpayerchange",
					},
				},
				map[string]any{
					"value": 0.001,
					"scriptPubKey": map[string]any{
						"address": "bc1qmerchant",
					},
				},
			},
			"blockhash": "00000000abc",
		},
		"getblockheader": map[string]any{
			"height": float64(850_000),
		},
	}}
	adapter := NewAdapter(domain.NetworkBitcoin, client, 3)

	detail, err := adapter.TransactionDetail(context.Background(), "txid")
	if err != nil {
		t.Fatalf("TransactionDetail failed: %v", err)
	}
	if len(detail.Outputs) != 2 {
		t.Fatalf("expected both outputs recorded, got %d", len(detail.Outputs))
	}
	paid := decimal.Zero
	for _, out := range detail.Outputs {
		if out.To == "bc1qmerchant" {
			paid = paid.Add(out.Value)
		}
	}
	if !paid.Equal(decimal.NewFromFloat(0.001)) {
		t.Errorf("expected merchant output 0.001, got %s", paid)
	}
	if !detail.Success || detail.BlockNumber != 850_000 {
		t.Errorf("expected mined at 850000, got success=%v block=%d", detail.Success, detail.BlockNumber)
	}
}

func TestTransactionDetail_SumsOutputsPerAddress(t *testing.T) {
	client := &mockClient{responses: map[string]any{
		"getrawtransaction": map[string]any{
			"vout": []any{
				map[string]any{
					"value": 0.01,
					"scriptPubKey": map[string]any{
						"address": "bc1qmerchant",
					},
				},
				map[string]any{
					"value": 0.015,
					"scriptPubKey": map[string]any{
						"address": "bc1qmerchant",
					},
				},
			},
			"blockhash": "00000000abc",
		},
		"getblockheader": map[string]any{
			"height": float64(850_000),
		},
	}}
	adapter := NewAdapter(domain.NetworkBitcoin, client, 3)

	detail, err := adapter.TransactionDetail(context.Background(), "txid")
	if err != nil {
		t.Fatalf("TransactionDetail failed: %v", err)
	}
	if len(detail.Outputs) != 1 {
		t.Fatalf("expected one summed output, got %d", len(detail.Outputs))
	}
	if detail.Outputs[0].To != "bc1qmerchant" || !detail.Outputs[0].Value.Equal(decimal.NewFromFloat(0.025)) {
		t.Errorf("expected 0.025 to bc1qmerchant, got %s to %s", detail.Outputs[0].Value, detail.Outputs[0].To)
	}
}

func TestTransactionDetail_UnminedNotSuccessful(t *testing.T) {
	client := &mockClient{responses: map[string]any{
		"getrawtransaction": map[string]any{
			"vout": []any{
				map[string]any{
					"value": 0.025,
					"scriptPubKey": map[string]any{
						"addresses": []any{"1A1zP1legacy"},
					},
				},
			},
			// No blockhash: still in the mempool.
		},
	}}
	adapter := NewAdapter(domain.NetworkBitcoin, client, 3)

	detail, err := adapter.TransactionDetail(context.Background(), "txid")
	if err != nil {
		t.Fatalf("TransactionDetail failed: %v", err)
	}
	if detail.Success {
		t.Error("mempool transaction must not report success")
	}
	if len(detail.Outputs) != 1 || detail.Outputs[0].To != "1A1zP1legacy" {
		t.Errorf("expected legacy addresses array parsed, got %+v", detail.Outputs)
	}
}

func TestLatestBlock(t *testing.T) {
	client := &mockClient{responses: map[string]any{
		"getblockcount": float64(850_123),
	}}
	adapter := NewAdapter(domain.NetworkBitcoin, client, 3)

	height, err := adapter.LatestBlock(context.Background())
	if err != nil {
		t.Fatalf("LatestBlock failed: %v", err)
	}
	if height != 850_123 {
		t.Errorf("expected 850123, got %d", height)
	}
}
