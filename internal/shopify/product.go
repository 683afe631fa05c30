package shopify

import (
	"context"
	"strconv"
	"strings"
)

// Product is the subset of the platform product record the sequence
// generator reads. Tags is the platform's single comma-separated string.
type Product struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Tags  string `json:"tags"`
}

// TagList splits the comma-separated tag string into trimmed tags.
func (p Product) TagList() []string {
	if p.Tags == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, t := range parts {
		tags = append(tags, strings.TrimSpace(t))
	}
	return tags
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var resp struct {
		Product Product `json:"product"`
	}
	path := "/products/" + strconv.FormatInt(productID, 10) + ".json"
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}
