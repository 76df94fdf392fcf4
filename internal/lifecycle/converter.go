package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coinflow/payments/internal/core/domain"
)

// ConvertChecker notifies the auto-conversion service that a payment
// completed so it can decide whether to convert the merchant's balance
// to their preferred settlement currency.
type ConvertChecker struct {
	url        string
	httpClient *http.Client
}

// NewConvertChecker creates a checker against the conversion service.
func NewConvertChecker(url string, timeout time.Duration) *ConvertChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &ConvertChecker{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type convertCheckRequest struct {
	TransactionID string `json:"transaction_id"`
	MerchantID    string `json:"merchant_id"`
	Currency      string `json:"currency"`
	CryptoAmount  string `json:"crypto_amount"`
	Network       string `json:"network"`
}

// CheckEligibility submits the completed payment for evaluation.
func (c *ConvertChecker) CheckEligibility(ctx context.Context, tx *domain.Transaction) error {
	payload, err := json.Marshal(convertCheckRequest{
		TransactionID: tx.ID,
		MerchantID:    tx.MerchantID,
		Currency:      string(tx.Currency),
		CryptoAmount:  tx.CryptoAmount.String(),
		Network:       string(tx.Network),
	})
	if err != nil {
		return fmt.Errorf("marshal conversion check: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post conversion check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("conversion service returned status %d", resp.StatusCode)
	}
	return nil
}
