// Package chip is a client for the CHIP payment gateway's purchases API:
// creating hosted checkout sessions and registering the paid-event webhook.
package chip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// APIError is a non-2xx gateway response. The body is attached to the
// checkout error response for diagnostics.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chip: unexpected status %d: %s", e.Status, e.Body)
}

// Config holds the gateway connection settings.
type Config struct {
	// BaseURL of the gateway API, e.g. https://gate.chip-in.asia.
	BaseURL string
	// APIKey is the Bearer token.
	APIKey string
	// HTTPClient overrides the default 15s-timeout client when set.
	HTTPClient *http.Client
}

// Client talks to the gateway REST API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient creates a gateway client.
func NewClient(cfg Config) *Client {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   httpc,
	}
}

// CreatePurchase opens a hosted checkout session. The gateway answers 201
// with a checkout_url on success. Purchase creation is a non-idempotent
// write and is never retried.
func (c *Client) CreatePurchase(ctx context.Context, req *PurchaseRequest) (*Purchase, error) {
	var purchase Purchase
	if err := c.post(ctx, "/api/v1/purchases/", req, &purchase, http.StatusCreated); err != nil {
		return nil, err
	}
	if purchase.CheckoutURL == "" {
		return nil, errors.New("chip: purchase response missing checkout_url")
	}
	return &purchase, nil
}

// RegisterWebhook subscribes the callback URL to gateway events.
func (c *Client) RegisterWebhook(ctx context.Context, reg *WebhookRegistration) error {
	return c.post(ctx, "/api/v1/webhooks/", reg, nil, http.StatusCreated, http.StatusOK)
}

func (c *Client) post(ctx context.Context, path string, in, out any, okStatus ...int) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	ok := false
	for _, s := range okStatus {
		if resp.StatusCode == s {
			ok = true
			break
		}
	}
	if !ok {
		return &APIError{Status: resp.StatusCode, Body: raw}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrapf(err, "decode POST %s response", path)
		}
	}
	return nil
}
