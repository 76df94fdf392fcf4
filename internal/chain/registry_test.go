package chain

import (
	"testing"

	"github.com/coinflow/payments/internal/core/domain"
)

func testAdapters() []Adapter {
	return []Adapter{
		&mockAdapter{network: domain.NetworkEthereum},
		&mockAdapter{network: domain.NetworkPolygon},
		&mockAdapter{network: domain.NetworkBitcoin},
	}
}

func TestResolve_DefaultRouting(t *testing.T) {
	registry, err := NewRegistry(testAdapters(), nil, nil)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	cases := map[domain.Currency]domain.Network{
		domain.CurrencyUSDC: domain.NetworkPolygon,
		domain.CurrencyUSDT: domain.NetworkPolygon,
		domain.CurrencyDAI:  domain.NetworkPolygon,
		domain.CurrencyETH:  domain.NetworkEthereum,
		domain.CurrencyBTC:  domain.NetworkBitcoin,
	}
	for currency, want := range cases {
		got, err := registry.Resolve(currency, "")
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", currency, err)
		}
		if got != want {
			t.Errorf("Resolve(%s) = %s, want %s", currency, got, want)
		}
	}
}

func TestResolve_MerchantPreference(t *testing.T) {
	registry, _ := NewRegistry(testAdapters(), nil, nil)

	// Stablecoins honor the merchant's preferred network when it
	// carries the token contract.
	got, _ := registry.Resolve(domain.CurrencyUSDC, domain.NetworkEthereum)
	if got != domain.NetworkEthereum {
		t.Errorf("expected preference honored for USDC, got %s", got)
	}

	// A network that cannot settle the token falls back to the route.
	got, _ = registry.Resolve(domain.CurrencyUSDC, domain.NetworkBitcoin)
	if got != domain.NetworkPolygon {
		t.Errorf("USDC cannot settle on bitcoin, expected polygon, got %s", got)
	}

	// Native coins never reroute.
	got, _ = registry.Resolve(domain.CurrencyETH, domain.NetworkPolygon)
	if got != domain.NetworkEthereum {
		t.Errorf("ETH must settle on ethereum, got %s", got)
	}
	got, _ = registry.Resolve(domain.CurrencyBTC, domain.NetworkEthereum)
	if got != domain.NetworkBitcoin {
		t.Errorf("BTC must settle on bitcoin, got %s", got)
	}

	// Preference for an unconfigured network falls back to the route.
	got, _ = registry.Resolve(domain.CurrencyUSDC, domain.Network("solana"))
	if got != domain.NetworkPolygon {
		t.Errorf("expected fallback to polygon, got %s", got)
	}
}

func TestNewRegistry_RejectsUnknownNetworkRoute(t *testing.T) {
	_, err := NewRegistry(testAdapters(), map[string]string{"USDC": "solana"}, nil)
	if err == nil {
		t.Error("expected error for routing to unconfigured network")
	}

	_, err = NewRegistry(testAdapters(), nil, map[string]map[string]Token{
		"solana": {"USDC": {Address: "0xdead", Decimals: 6}},
	})
	if err == nil {
		t.Error("expected error for token table on unconfigured network")
	}
}

func TestTokenFor(t *testing.T) {
	registry, _ := NewRegistry(testAdapters(), nil, map[string]map[string]Token{
		"polygon": {"USDC": {Address: "0x000000000000000000000000000000000000cafe", Decimals: 6}},
	})

	tok, ok := registry.TokenFor(domain.NetworkPolygon, domain.CurrencyUSDC)
	if !ok || tok.Address != "0x000000000000000000000000000000000000cafe" {
		t.Errorf("expected configured override, got %+v ok=%v", tok, ok)
	}

	// Untouched defaults survive an override elsewhere.
	tok, ok = registry.TokenFor(domain.NetworkEthereum, domain.CurrencyDAI)
	if !ok || tok.Decimals != 18 {
		t.Errorf("expected default DAI entry, got %+v ok=%v", tok, ok)
	}

	// Native settlement has no token.
	if _, ok := registry.TokenFor(domain.NetworkBitcoin, domain.CurrencyBTC); ok {
		t.Error("BTC should settle natively")
	}
}

func TestValidWalletFormat(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"0x1111111111111111111111111111111111111111", true},
		{"0xAbCd000000000000000000000000000000000001", true},
		{"0x123", false},
		{"0xzz11111111111111111111111111111111111111", false},
		{"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", true},
		{"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", true},
		{"short", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidWalletFormat(tc.addr); got != tc.want {
			t.Errorf("ValidWalletFormat(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}
