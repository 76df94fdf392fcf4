package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/coinflow/payments/internal/metrics"
)

// Client is the high-level interface for making RPC calls against one
// network. It tries providers in order with retry, failing over on
// quota and auth errors.
type Client struct {
	network   string
	providers []Provider
	retryCfg  RetryConfig
}

// NewClient creates a client over an ordered provider list.
func NewClient(network string, providers ...Provider) *Client {
	return &Client{
		network:   network,
		providers: providers,
		retryCfg:  DefaultRetryConfig,
	}
}

// Network returns the network this client serves.
func (c *Client) Network() string { return c.network }

// Call makes an RPC call with retry and provider failover.
func (c *Client) Call(ctx context.Context, method string, params []any) (any, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("no providers for network %s", c.network)
	}

	var lastErr error
	for _, p := range c.providers {
		start := time.Now()
		result, err := CallWithRetry(ctx, p, method, params, c.retryCfg)
		metrics.RPCLatency.WithLabelValues(c.network, p.Name(), method).
			Observe(time.Since(start).Seconds())
		metrics.RPCCallsTotal.WithLabelValues(c.network, p.Name(), method).Inc()

		if err == nil {
			return result, nil
		}

		lastErr = err
		metrics.RPCErrorsTotal.WithLabelValues(c.network, p.Name()).Inc()

		if ClassifyError(err) == ActionFatal {
			return nil, fmt.Errorf("fatal error from provider %s: %w", p.Name(), err)
		}
	}

	return nil, fmt.Errorf("all providers failed for %s: %w", c.network, lastErr)
}
