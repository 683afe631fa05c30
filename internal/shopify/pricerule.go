package shopify

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/badixth/chip-in-backend/internal/coupon"
)

// priceRule mirrors the fields of a catalog price rule the relay reads.
// Value arrives as a decimal string, negative for discounts.
type priceRule struct {
	Title     string          `json:"title"`
	Value     decimal.Decimal `json:"value"`
	ValueType string          `json:"value_type"`
}

// PriceRules lists the store's discount rules. The endpoint is unpaginated
// on our side; an absent or empty list is returned as an empty slice.
func (c *Client) PriceRules(ctx context.Context) ([]coupon.Rule, error) {
	var resp struct {
		PriceRules []priceRule `json:"price_rules"`
	}
	if err := c.get(ctx, "/price_rules.json", &resp); err != nil {
		return nil, err
	}

	rules := make([]coupon.Rule, len(resp.PriceRules))
	for i, r := range resp.PriceRules {
		rules[i] = coupon.Rule{
			Title:     r.Title,
			Value:     r.Value,
			ValueType: r.ValueType,
		}
	}
	return rules, nil
}
