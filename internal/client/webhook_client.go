package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookClient POSTs event envelopes to subscriber-supplied URLs. Deliveries
// are single-attempt; retry policy belongs to the subscriber.
type WebhookClient struct {
	client *http.Client
}

func NewWebhookClient() *WebhookClient {
	return &WebhookClient{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type eventEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Deliver sends one event to one subscriber URL and returns the upstream
// status code. Non-2xx responses are reported as errors.
func (c *WebhookClient) Deliver(ctx context.Context, url, event string, data any) (int, error) {
	reqBody, err := json.Marshal(eventEnvelope{
		Event: event,
		Data:  data,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	return resp.StatusCode, nil
}
