package shopify

import (
	"context"
	"strconv"
)

// Metafield is a platform-native extensible key/value attribute. Values are
// always transported as strings regardless of the declared type.
type Metafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Key       string `json:"key,omitempty"`
	Type      string `json:"type,omitempty"`
	Value     string `json:"value"`
}

type metafieldEnvelope struct {
	Metafield Metafield `json:"metafield"`
}

// ProductMetafields lists the metafields attached to a product.
func (c *Client) ProductMetafields(ctx context.Context, productID int64) ([]Metafield, error) {
	var resp struct {
		Metafields []Metafield `json:"metafields"`
	}
	path := "/products/" + strconv.FormatInt(productID, 10) + "/metafields.json"
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Metafields, nil
}

// CreateProductMetafield attaches a new metafield to a product.
func (c *Client) CreateProductMetafield(ctx context.Context, productID int64, mf Metafield) error {
	path := "/products/" + strconv.FormatInt(productID, 10) + "/metafields.json"
	return c.send(ctx, "POST", path, metafieldEnvelope{Metafield: mf}, nil)
}

// UpdateMetafield replaces the value of an existing metafield.
func (c *Client) UpdateMetafield(ctx context.Context, metafieldID int64, value string) error {
	path := "/metafields/" + strconv.FormatInt(metafieldID, 10) + ".json"
	return c.send(ctx, "PUT", path, metafieldEnvelope{Metafield: Metafield{Value: value}}, nil)
}
