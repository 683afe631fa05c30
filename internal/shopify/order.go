package shopify

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRequest is the order-creation payload. Prices are in major currency
// units; decimal fields marshal as strings, which the platform accepts.
type OrderRequest struct {
	FinancialStatus    string          `json:"financial_status"`
	Customer           OrderCustomer   `json:"customer"`
	InventoryBehaviour string          `json:"inventory_behaviour"`
	LineItems          []OrderLineItem `json:"line_items"`
	DiscountCodes      []DiscountCode  `json:"discount_codes"`
	ShippingAddress    OrderAddress    `json:"shipping_address"`
	ShippingLines      []ShippingLine  `json:"shipping_lines"`
	Note               string          `json:"note"`
	Metafields         []Metafield     `json:"metafields"`
	SendReceipt        bool            `json:"send_receipt"`
}

// OrderCustomer references an existing customer by id, or describes a new
// one by email when ID is zero.
type OrderCustomer struct {
	ID        int64  `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
}

// OrderLineItem is one order line, re-denominated in major units.
type OrderLineItem struct {
	ProductID         int64           `json:"product_id"`
	Title             string          `json:"title"`
	Quantity          int64           `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	VariantID         int64           `json:"variant_id"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	FinalLinePrice    decimal.Decimal `json:"final_line_price"`
	OriginalLinePrice decimal.Decimal `json:"original_line_price"`
}

// DiscountCode records the coupon applied to the order.
type DiscountCode struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type"`
}

// OrderAddress is the order's shipping address.
type OrderAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// ShippingLine is the flat-rate shipping charge on the order. Price must be
// a string per the platform's order API.
type ShippingLine struct {
	Title  string `json:"title"`
	Price  string `json:"price"`
	Code   string `json:"code"`
	Source string `json:"source"`
}

// CreatedOrder is the subset of the order-creation response the relay reads.
type CreatedOrder struct {
	ID       int64     `json:"id"`
	Customer *Customer `json:"customer"`
}

// CreateOrder submits a new order. Not retried: order creation is the one
// non-idempotent write whose duplication the whole webhook flow guards
// against.
func (c *Client) CreateOrder(ctx context.Context, order *OrderRequest) (*CreatedOrder, error) {
	payload := struct {
		Order *OrderRequest `json:"order"`
	}{Order: order}

	var resp struct {
		Order CreatedOrder `json:"order"`
	}
	if err := c.send(ctx, "POST", "/orders.json", payload, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}
