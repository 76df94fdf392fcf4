package domain

type Currency string
type Network string

const (
	// Supported settlement currencies
	CurrencyUSDC Currency = "USDC"
	CurrencyUSDT Currency = "USDT"
	CurrencyDAI  Currency = "DAI"
	CurrencyETH  Currency = "ETH"
	CurrencyBTC  Currency = "BTC"

	// Networks
	NetworkEthereum Network = "ethereum"
	NetworkPolygon  Network = "polygon"
	NetworkBitcoin  Network = "bitcoin"
)

// SupportedCurrencies is the closed set of currencies a payment may use.
var SupportedCurrencies = map[Currency]bool{
	CurrencyUSDC: true,
	CurrencyUSDT: true,
	CurrencyDAI:  true,
	CurrencyETH:  true,
	CurrencyBTC:  true,
}

// IsValidCurrency reports whether c is in the supported set.
func IsValidCurrency(c Currency) bool {
	return SupportedCurrencies[c]
}
