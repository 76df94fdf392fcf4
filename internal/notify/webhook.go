package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookEmitter POSTs events to an HTTP collaborator: the realtime
// notification service or the email service.
type WebhookEmitter struct {
	url        string
	httpClient *http.Client
}

// NewWebhookEmitter creates an HTTP emitter.
func NewWebhookEmitter(url string, timeout time.Duration) *WebhookEmitter {
	return &WebhookEmitter{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Emit delivers one event.
func (e *WebhookEmitter) Emit(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("collaborator returned status %d", resp.StatusCode)
	}
	return nil
}
