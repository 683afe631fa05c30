package shopify

import "context"

// Webhook is a platform webhook subscription.
type Webhook struct {
	ID      int64  `json:"id,omitempty"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format,omitempty"`
}

// ListWebhooks returns the store's registered webhook subscriptions.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var resp struct {
		Webhooks []Webhook `json:"webhooks"`
	}
	if err := c.get(ctx, "/webhooks.json", &resp); err != nil {
		return nil, err
	}
	return resp.Webhooks, nil
}

// CreateWebhook registers a new webhook subscription.
func (c *Client) CreateWebhook(ctx context.Context, wh Webhook) error {
	payload := struct {
		Webhook Webhook `json:"webhook"`
	}{Webhook: wh}
	return c.send(ctx, "POST", "/webhooks.json", payload, nil)
}

// EnsureWebhook registers the topic/address subscription unless an identical
// one already exists.
func (c *Client) EnsureWebhook(ctx context.Context, topic, address string) (created bool, err error) {
	existing, err := c.ListWebhooks(ctx)
	if err != nil {
		return false, err
	}
	for _, wh := range existing {
		if wh.Topic == topic && wh.Address == address {
			return false, nil
		}
	}
	err = c.CreateWebhook(ctx, Webhook{Topic: topic, Address: address, Format: "json"})
	return err == nil, err
}
