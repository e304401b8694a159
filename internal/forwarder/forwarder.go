// Package forwarder POSTs admitted proposals to the downstream
// broadcaster sink. Failures are logged once and never retried or
// propagated back into the pipeline.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rawblock/signalengine/pkg/models"
)

// Client is a thin wrapper around a base URL and bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string

	sent atomic.Int64
}

// New builds a Client. baseURL may be empty, in which case Send is a
// no-op (the downstream sink is optional).
func New(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		token:      token,
	}
}

// Send POSTs the payload to <baseURL>/signals. It is meant to be
// called from its own goroutine by the caller, fire-and-forget; Send
// itself performs exactly one synchronous POST and never retries.
func (c *Client) Send(ctx context.Context, p models.ForwardPayload) {
	if c.baseURL == "" {
		return
	}

	body, err := json.Marshal(p)
	if err != nil {
		log.Printf("[Forwarder] marshal failed for %s: %v", p.Pair, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/signals", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Forwarder] request build failed for %s: %v", p.Pair, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Forwarder] send failed for %s: %v", p.Pair, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("[Forwarder] sink returned %s for %s", resp.Status, p.Pair)
		return
	}

	c.sent.Add(1)
}

// SignalsSent reports the process-lifetime count of successful POSTs,
// for /api/status.
func (c *Client) SignalsSent() int64 {
	return c.sent.Load()
}
