// Package shopify is a minimal client for the commerce platform's Admin REST
// API, covering only what the payment relay needs: price rules, customer
// search and consent updates, products, metafields, order creation, and
// webhook registration.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
)

const apiVersion = "2024-10"

// maxGetRetries bounds retries of idempotent reads. Writes are never retried;
// a duplicated order or metafield is worse than a failed one.
const maxGetRetries = 2

// APIError is a non-2xx response from the platform. The body is kept for
// diagnostics and is surfaced to logs, never to external callers verbatim.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify: unexpected status %d: %s", e.Status, e.Body)
}

// Config holds the connection settings for the platform client.
type Config struct {
	// StoreURL is the myshopify store base URL, without trailing slash.
	StoreURL string
	// AccessToken is the Admin API access token.
	AccessToken string
	// HTTPClient overrides the default 15s-timeout client when set.
	HTTPClient *http.Client
}

// Client talks to the platform's Admin REST API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient creates a platform client for the given store.
func NewClient(cfg Config) *Client {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: cfg.StoreURL + "/admin/api/" + apiVersion,
		token:   cfg.AccessToken,
		httpc:   httpc,
	}
}

// get performs an idempotent read with bounded exponential backoff. Transport
// errors and 5xx responses are retried; 4xx responses are permanent.
func (c *Client) get(ctx context.Context, path string, out any) error {
	op := func() error {
		err := c.do(ctx, http.MethodGet, path, nil, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxGetRetries), ctx)
	return backoff.Retry(op, bo)
}

// send performs a non-idempotent write. No retry.
func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	return c.do(ctx, method, path, in, out)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: raw}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrapf(err, "decode %s %s response", method, path)
		}
	}
	return nil
}
