package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/coinflow/payments/internal/core/domain"
)

type mockAdapter struct {
	network       domain.Network
	height        uint64
	heightErr     error
	detail        *TxDetail
	detailErr     error
	confirmations uint64
}

func (m *mockAdapter) Network() domain.Network { return m.network }

func (m *mockAdapter) LatestBlock(ctx context.Context) (uint64, error) {
	return m.height, m.heightErr
}

func (m *mockAdapter) TransactionDetail(ctx context.Context, txHash string) (*TxDetail, error) {
	return m.detail, m.detailErr
}

func (m *mockAdapter) RequiredConfirmations() uint64 { return m.confirmations }

const payoutWallet = "0xAbCd000000000000000000000000000000000001"

func goodDetail() *TxDetail {
	return &TxDetail{
		Hash:        "0xhash",
		From:        "0xpayer",
		To:          "0xabcd000000000000000000000000000000000001",
		Value:       decimal.NewFromFloat(0.05),
		BlockNumber: 100,
		GasUsed:     21000,
		GasPrice:    "30000000000",
		Success:     true,
	}
}

func newTestVerifier(adapter *mockAdapter) *Verifier {
	registry, err := NewRegistry([]Adapter{adapter}, nil, nil)
	if err != nil {
		panic(err)
	}
	return NewVerifier(registry)
}

// usdcTransfer builds a realistic successful ERC-20 payment: native
// value zero, native recipient is the token contract, the real payment
// lives in the Transfer event.
func usdcTransfer(to string, rawUnits int64) *TxDetail {
	contract := DefaultTokens[domain.NetworkPolygon][domain.CurrencyUSDC].Address
	return &TxDetail{
		Hash:        "0xhash",
		From:        "0xpayer",
		To:          contract,
		Value:       decimal.Zero,
		BlockNumber: 100,
		GasUsed:     65000,
		GasPrice:    "30000000000",
		Success:     true,
		TokenTransfers: []TokenTransfer{{
			Token: contract,
			From:  "0xpayer",
			To:    to,
			Value: decimal.NewFromInt(rawUnits),
		}},
	}
}

func TestVerify_Accepts(t *testing.T) {
	adapter := &mockAdapter{network: domain.NetworkPolygon, detail: goodDetail()}
	v := newTestVerifier(adapter)

	got, err := v.Verify(context.Background(), domain.NetworkPolygon, "0xhash", Expected{
		Recipient: payoutWallet,
		Amount:    decimal.NewFromFloat(0.05),
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if got.From != "0xpayer" || got.BlockNumber != 100 {
		t.Errorf("unexpected verification %+v", got)
	}
}

func TestVerify_OverpaymentAccepted(t *testing.T) {
	adapter := &mockAdapter{network: domain.NetworkPolygon, detail: goodDetail()}
	v := newTestVerifier(adapter)

	_, err := v.Verify(context.Background(), domain.NetworkPolygon, "0xhash", Expected{
		Recipient: payoutWallet,
		Amount:    decimal.NewFromFloat(0.04),
	})
	if err != nil {
		t.Fatalf("overpayment should verify, got %v", err)
	}
}

func TestVerify_TokenTransferAccepted(t *testing.T) {
	// 100 USDC at 6 decimals.
	adapter := &mockAdapter{network: domain.NetworkPolygon, detail: usdcTransfer(payoutWallet, 100_000_000)}
	v := newTestVerifier(adapter)

	got, err := v.Verify(context.Background(), domain.NetworkPolygon, "0xhash", Expected{
		Recipient: payoutWallet,
		Amount:    decimal.NewFromInt(100),
		Currency:  domain.CurrencyUSDC,
	})
	if err != nil {
		t.Fatalf("token payment should verify, got %v", err)
	}
	if got.From != "0xpayer" || got.BlockNumber != 100 {
		t.Errorf("unexpected verification %+v", got)
	}
}

func TestVerify_TokenTransferRejections(t *testing.T) {
	cases := []struct {
		name   string
		detail *TxDetail
	}{
		{
			// Native-only view of a token payment: value 0, to = contract.
			name: "no transfer events",
			detail: func() *TxDetail {
				d := usdcTransfer(payoutWallet, 100_000_000)
				d.TokenTransfers = nil
				return d
			}(),
		},
		{
			name:   "transfer pays someone else",
			detail: usdcTransfer("0x9999000000000000000000000000000000000009", 100_000_000),
		},
		{
			name:   "transfer underpays",
			detail: usdcTransfer(payoutWallet, 99_000_000),
		},
		{
			// Right recipient, wrong contract.
			name: "wrong token",
			detail: func() *TxDetail {
				d := usdcTransfer(payoutWallet, 100_000_000)
				d.TokenTransfers[0].Token = "0x000000000000000000000000000000000000dead"
				return d
			}(),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adapter := &mockAdapter{network: domain.NetworkPolygon, detail: tc.detail}
			v := newTestVerifier(adapter)

			_, err := v.Verify(context.Background(), domain.NetworkPolygon, "0xhash", Expected{
				Recipient: payoutWallet,
				Amount:    decimal.NewFromInt(100),
				Currency:  domain.CurrencyUSDC,
			})
			de, ok := domain.AsError(err)
			if !ok {
				t.Fatalf("expected engine error, got %v", err)
			}
			if de.Code != domain.CodeVerificationFailed || de.Kind != domain.KindRejection {
				t.Errorf("expected VERIFICATION_FAILED rejection, got %s/%d", de.Code, de.Kind)
			}
		})
	}
}

func TestVerify_TokenTransfersSummed(t *testing.T) {
	// Two partial transfers to the merchant in one transaction.
	detail := usdcTransfer(payoutWallet, 60_000_000)
	detail.TokenTransfers = append(detail.TokenTransfers, TokenTransfer{
		Token: detail.TokenTransfers[0].Token,
		From:  "0xpayer",
		To:    payoutWallet,
		Value: decimal.NewFromInt(40_000_000),
	})
	adapter := &mockAdapter{network: domain.NetworkPolygon, detail: detail}
	v := newTestVerifier(adapter)

	_, err := v.Verify(context.Background(), domain.NetworkPolygon, "0xhash", Expected{
		Recipient: payoutWallet,
		Amount:    decimal.NewFromInt(100),
		Currency:  domain.CurrencyUSDC,
	})
	if err != nil {
		t.Fatalf("summed transfers should cover the amount, got %v", err)
	}
}

func TestVerify_OutputsMatchedByAddress(t *testing.T) {
	// Change output back to the payer dwarfs the actual payment.
	adapter := &mockAdapter{network: domain.NetworkBitcoin, detail: &TxDetail{
		Hash:        "txid",
		BlockNumber: 100,
		Success:     true,
		Outputs: []Output{
			{To: "bc1qpayerchange000000000000000000000000000", Value: decimal.NewFromFloat(0.9)},
			{To: "bc1qmerchant0000000000000000000000000000000", Value: decimal.NewFromFloat(0.001)},
		},
	}}
	v := newTestVerifier(adapter)

	_, err := v.Verify(context.Background(), domain.NetworkBitcoin, "txid", Expected{
		Recipient: "bc1qmerchant0000000000000000000000000000000",
		Amount:    decimal.NewFromFloat(0.001),
		Currency:  domain.CurrencyBTC,
	})
	if err != nil {
		t.Fatalf("payment next to a larger change output should verify, got %v", err)
	}

	_, err = v.Verify(context.Background(), domain.NetworkBitcoin, "txid", Expected{
		Recipient: "bc1qsomeoneelse000000000000000000000000000",
		Amount:    decimal.NewFromFloat(0.001),
		Currency:  domain.CurrencyBTC,
	})
	if err == nil {
		t.Fatal("expected rejection when no output pays the recipient")
	}
}

func TestVerify_FailsClosed(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*mockAdapter)
		wantCode domain.ErrorCode
		wantKind domain.Kind
	}{
		{
			name:     "rpc error",
			mutate:   func(a *mockAdapter) { a.detail, a.detailErr = nil, errors.New("timeout") },
			wantCode: domain.CodeChainUnavailable,
			wantKind: domain.KindRetryable,
		},
		{
			name:     "transaction not found",
			mutate:   func(a *mockAdapter) { a.detail = nil },
			wantCode: domain.CodeVerificationFailed,
			wantKind: domain.KindRetryable,
		},
		{
			name:     "reverted receipt",
			mutate:   func(a *mockAdapter) { a.detail.Success = false },
			wantCode: domain.CodeVerificationFailed,
			wantKind: domain.KindRetryable,
		},
		{
			name:     "wrong recipient",
			mutate:   func(a *mockAdapter) { a.detail.To = "0x9999000000000000000000000000000000000009" },
			wantCode: domain.CodeVerificationFailed,
			wantKind: domain.KindRejection,
		},
		{
			name:     "underpayment",
			mutate:   func(a *mockAdapter) { a.detail.Value = decimal.NewFromFloat(0.01) },
			wantCode: domain.CodeVerificationFailed,
			wantKind: domain.KindRejection,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adapter := &mockAdapter{network: domain.NetworkPolygon, detail: goodDetail()}
			tc.mutate(adapter)
			v := newTestVerifier(adapter)

			_, err := v.Verify(context.Background(), domain.NetworkPolygon, "0xhash", Expected{
				Recipient: payoutWallet,
				Amount:    decimal.NewFromFloat(0.05),
			})
			de, ok := domain.AsError(err)
			if !ok {
				t.Fatalf("expected engine error, got %v", err)
			}
			if de.Code != tc.wantCode || de.Kind != tc.wantKind {
				t.Errorf("expected %s/%d, got %s/%d", tc.wantCode, tc.wantKind, de.Code, de.Kind)
			}
		})
	}
}

func TestVerify_AddressComparisonCaseInsensitive(t *testing.T) {
	adapter := &mockAdapter{network: domain.NetworkPolygon, detail: goodDetail()}
	adapter.detail.To = "0XABCD000000000000000000000000000000000001"
	v := newTestVerifier(adapter)

	_, err := v.Verify(context.Background(), domain.NetworkPolygon, "0xhash", Expected{
		Recipient: payoutWallet,
		Amount:    decimal.NewFromFloat(0.05),
	})
	if err != nil {
		t.Fatalf("checksummed address should match, got %v", err)
	}
}

func TestConfirmations(t *testing.T) {
	adapter := &mockAdapter{network: domain.NetworkPolygon, height: 120}
	v := newTestVerifier(adapter)

	depth, err := v.Confirmations(context.Background(), domain.NetworkPolygon, 100)
	if err != nil {
		t.Fatalf("Confirmations failed: %v", err)
	}
	if depth != 20 {
		t.Errorf("expected depth 20, got %d", depth)
	}

	// Height behind the recorded block (provider lag) clamps to zero.
	adapter.height = 99
	depth, err = v.Confirmations(context.Background(), domain.NetworkPolygon, 100)
	if err != nil {
		t.Fatalf("Confirmations failed: %v", err)
	}
	if depth != 0 {
		t.Errorf("expected clamped depth 0, got %d", depth)
	}
}
