package chain

import (
	"fmt"

	"github.com/coinflow/payments/internal/core/domain"
)

// Registry routes currencies to networks and resolves the adapter for a
// network. The routing table is configuration, not code: stablecoins
// default to a low-fee network, ETH and BTC settle on their native
// chains.
type Registry struct {
	adapters map[domain.Network]Adapter
	routing  map[domain.Currency]domain.Network
	tokens   map[domain.Network]map[domain.Currency]Token
}

// Token is the settlement contract for a currency on one network.
// Currencies without a token entry settle as the network's native coin.
type Token struct {
	Address  string
	Decimals int32
}

// DefaultRouting is used for any currency absent from the configured
// table.
var DefaultRouting = map[domain.Currency]domain.Network{
	domain.CurrencyUSDC: domain.NetworkPolygon,
	domain.CurrencyUSDT: domain.NetworkPolygon,
	domain.CurrencyDAI:  domain.NetworkPolygon,
	domain.CurrencyETH:  domain.NetworkEthereum,
	domain.CurrencyBTC:  domain.NetworkBitcoin,
}

// DefaultTokens maps the stablecoin contracts per EVM network. Entries
// are overridable from configuration.
var DefaultTokens = map[domain.Network]map[domain.Currency]Token{
	domain.NetworkEthereum: {
		domain.CurrencyUSDC: {Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Decimals: 6},
		domain.CurrencyUSDT: {Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Decimals: 6},
		domain.CurrencyDAI:  {Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Decimals: 18},
	},
	domain.NetworkPolygon: {
		domain.CurrencyUSDC: {Address: "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359", Decimals: 6},
		domain.CurrencyUSDT: {Address: "0xc2132d05d31c914a87c6611c10748aeb04b58e8f", Decimals: 6},
		domain.CurrencyDAI:  {Address: "0x8f3cf7ad23cd3cadbd9735aff958023239c6a063", Decimals: 18},
	},
}

// NewRegistry builds a registry over the given adapters, routing table
// and token overrides. Entries for unknown networks are rejected.
func NewRegistry(adapters []Adapter, routing map[string]string, tokens map[string]map[string]Token) (*Registry, error) {
	r := &Registry{
		adapters: make(map[domain.Network]Adapter, len(adapters)),
		routing:  make(map[domain.Currency]domain.Network),
		tokens:   make(map[domain.Network]map[domain.Currency]Token),
	}
	for _, a := range adapters {
		r.adapters[a.Network()] = a
	}

	for currency, network := range DefaultRouting {
		r.routing[currency] = network
	}
	for currency, network := range routing {
		if _, ok := r.adapters[domain.Network(network)]; !ok {
			return nil, fmt.Errorf("routing for %s references unknown network %s", currency, network)
		}
		r.routing[domain.Currency(currency)] = domain.Network(network)
	}

	for network, table := range DefaultTokens {
		r.tokens[network] = make(map[domain.Currency]Token, len(table))
		for currency, token := range table {
			r.tokens[network][currency] = token
		}
	}
	for network, table := range tokens {
		n := domain.Network(network)
		if _, ok := r.adapters[n]; !ok {
			return nil, fmt.Errorf("token table references unknown network %s", network)
		}
		if r.tokens[n] == nil {
			r.tokens[n] = make(map[domain.Currency]Token, len(table))
		}
		for currency, token := range table {
			r.tokens[n][domain.Currency(currency)] = token
		}
	}

	return r, nil
}

// TokenFor returns the settlement contract for currency on network.
// The second return is false for native-coin settlement.
func (r *Registry) TokenFor(network domain.Network, currency domain.Currency) (Token, bool) {
	token, ok := r.tokens[network][currency]
	return token, ok
}

// Resolve picks the network for a currency, honoring the merchant's
// preference when that network can actually settle the currency.
func (r *Registry) Resolve(currency domain.Currency, preferred domain.Network) (domain.Network, error) {
	network, ok := r.routing[currency]
	if !ok {
		return "", domain.Rejectf(domain.CodeInvalidCurrency, "no network route for currency %s", currency)
	}

	// Native coins are never rerouted; merchant preference only applies
	// to stablecoins, and only on networks carrying the token contract.
	if preferred != "" && currency != domain.CurrencyETH && currency != domain.CurrencyBTC {
		if _, ok := r.adapters[preferred]; ok {
			if _, ok := r.TokenFor(preferred, currency); ok {
				return preferred, nil
			}
		}
	}
	return network, nil
}

// AdapterFor returns the adapter serving network.
func (r *Registry) AdapterFor(network domain.Network) (Adapter, error) {
	a, ok := r.adapters[network]
	if !ok {
		return nil, fmt.Errorf("no adapter for network %s", network)
	}
	return a, nil
}
