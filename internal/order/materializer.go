// Package order materializes a paid payment session into a platform order:
// customer resolution, discount and shipping reconstruction, academy class
// sequencing and the marketing-consent follow-up.
package order

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/badixth/chip-in-backend/internal/checkout"
	"github.com/badixth/chip-in-backend/internal/coupon"
	"github.com/badixth/chip-in-backend/internal/pricing"
	"github.com/badixth/chip-in-backend/internal/shopify"
)

var hundred = decimal.NewFromInt(100)

// CustomerOrders is the slice of the platform API the materializer needs.
type CustomerOrders interface {
	SearchCustomerByEmail(ctx context.Context, email string) (*shopify.Customer, error)
	SearchCustomerByPhone(ctx context.Context, phone string) (*shopify.Customer, error)
	CreateOrder(ctx context.Context, order *shopify.OrderRequest) (*shopify.CreatedOrder, error)
	UpdateCustomerConsent(ctx context.Context, customerID int64, state string) error
}

// Request carries everything needed to build the order: identity as
// confirmed by the payment gateway plus the cart and attributes relayed
// through the session metadata.
type Request struct {
	Name            string
	Email           string
	Phone           string
	Address         checkout.Address
	Items           []checkout.LineItem
	Attributes      json.RawMessage
	CouponCode      string
	ConsentState    string
	FinancialStatus string
}

// Result reports the created order.
type Result struct {
	OrderID    int64
	CustomerID int64
}

// Materializer turns paid sessions into platform orders.
type Materializer struct {
	platform  CustomerOrders
	coupons   coupon.Validator
	sequences *SequenceGenerator
}

func NewMaterializer(platform CustomerOrders, coupons coupon.Validator, sequences *SequenceGenerator) *Materializer {
	return &Materializer{
		platform:  platform,
		coupons:   coupons,
		sequences: sequences,
	}
}

// CreateOrder builds and submits the order. Side work around the order
// itself, customer lookup, the purchase counter and the consent update, is
// best-effort: failures there are logged, not returned.
func (m *Materializer) CreateOrder(ctx context.Context, req Request) (*Result, error) {
	lg := zctx.From(ctx)

	customer := m.findCustomer(ctx, req.Email, req.Phone)

	order := &shopify.OrderRequest{
		FinancialStatus:    req.FinancialStatus,
		InventoryBehaviour: "decrement_obeying_policy",
		LineItems:          orderLines(req.Items),
		DiscountCodes:      m.discountCodes(ctx, req.CouponCode),
		ShippingAddress:    orderAddress(req),
		ShippingLines:      shippingLines(req),
		Note:               "Order created via custom payment integration",
		Metafields:         m.metafields(ctx, req),
		SendReceipt:        true,
	}
	if order.FinancialStatus == "" {
		order.FinancialStatus = "paid"
	}

	first, last := splitName(req.Name)
	if customer != nil {
		order.Customer = shopify.OrderCustomer{ID: customer.ID, FirstName: first, LastName: last}
	} else {
		order.Customer = shopify.OrderCustomer{FirstName: first, LastName: last, Email: req.Email}
	}

	created, err := m.platform.CreateOrder(ctx, order)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	res := &Result{OrderID: created.ID}
	if created.Customer != nil {
		res.CustomerID = created.Customer.ID
	}
	lg.Info("Order created",
		zap.Int64("order_id", res.OrderID),
		zap.Int64("customer_id", res.CustomerID),
	)

	if req.ConsentState != "" && res.CustomerID != 0 {
		if err := m.platform.UpdateCustomerConsent(ctx, res.CustomerID, req.ConsentState); err != nil {
			lg.Warn("Marketing consent update failed",
				zap.Int64("customer_id", res.CustomerID),
				zap.Error(err),
			)
		}
	}

	return res, nil
}

// findCustomer resolves an existing customer by email, then by phone.
// Lookup failures degrade to "not found": the order is then created with a
// fresh customer record instead of being dropped.
func (m *Materializer) findCustomer(ctx context.Context, email, phone string) *shopify.Customer {
	lg := zctx.From(ctx)

	if email != "" {
		c, err := m.platform.SearchCustomerByEmail(ctx, email)
		if err != nil {
			lg.Warn("Customer email lookup failed", zap.Error(err))
		} else if c != nil {
			return c
		}
	}
	if phone != "" {
		c, err := m.platform.SearchCustomerByPhone(ctx, phone)
		if err != nil {
			lg.Warn("Customer phone lookup failed", zap.Error(err))
		} else if c != nil {
			return c
		}
	}
	return nil
}

// discountCodes re-validates the coupon at order time. An invalid or
// unresolvable coupon yields no discount code rather than a failed order:
// the customer already paid the discounted amount.
func (m *Materializer) discountCodes(ctx context.Context, code string) []shopify.DiscountCode {
	codes := []shopify.DiscountCode{}
	if code == "" {
		return codes
	}

	term, err := m.coupons.Validate(ctx, code)
	if err != nil {
		zctx.From(ctx).Warn("Coupon re-validation failed",
			zap.String("coupon_code", code),
			zap.Error(err),
		)
		return codes
	}
	if !term.Valid {
		return codes
	}
	return append(codes, shopify.DiscountCode{
		Code:   term.Code,
		Amount: term.Value.Abs(),
		Type:   term.Kind,
	})
}

func (m *Materializer) metafields(ctx context.Context, req Request) []shopify.Metafield {
	attrs := req.Attributes
	if len(attrs) == 0 || !jx.Valid(attrs) {
		attrs = json.RawMessage(`{}`)
	}
	metafields := []shopify.Metafield{{
		Namespace: "custom",
		Key:       "player_data",
		Type:      "json",
		Value:     string(attrs),
	}}

	if formType(attrs) == checkout.FormAcademy {
		if mf := m.sequences.ClassMetafield(ctx, req.Items); mf != nil {
			metafields = append(metafields, *mf)
		}
	}
	return metafields
}

func formType(attrs json.RawMessage) string {
	var probe struct {
		FormType string `json:"formType"`
	}
	if err := json.Unmarshal(attrs, &probe); err != nil {
		return ""
	}
	return probe.FormType
}

func orderLines(items []checkout.LineItem) []shopify.OrderLineItem {
	lines := make([]shopify.OrderLineItem, 0, len(items))
	for _, item := range items {
		qty := item.Quantity.IntPart()
		if qty <= 0 {
			qty = 1
		}
		lines = append(lines, shopify.OrderLineItem{
			ProductID:         item.ProductID,
			Title:             item.Name,
			Quantity:          qty,
			Price:             item.OriginalPrice.Div(hundred),
			VariantID:         item.VariantID,
			TotalDiscount:     item.TotalDiscount.Div(hundred),
			FinalLinePrice:    item.FinalLinePrice.Div(hundred),
			OriginalLinePrice: item.OriginalLinePrice.Div(hundred),
		})
	}
	return lines
}

func orderAddress(req Request) shopify.OrderAddress {
	first, last := splitName(req.Name)
	return shopify.OrderAddress{
		FirstName: first,
		LastName:  last,
		Address1:  req.Address.Address1,
		City:      req.Address.City,
		Province:  req.Address.Province,
		Zip:       req.Address.Zip,
		Country:   req.Address.Country,
		Phone:     req.Phone,
	}
}

func shippingLines(req Request) []shopify.ShippingLine {
	// The line is present even at zero fee so the order always records a
	// shipping method.
	fee := pricing.ShippingFee(req.Address.Country, req.Address.Province, checkout.AnyNeedsShipping(req.Items))
	return []shopify.ShippingLine{{
		Title:  "Standard Shipping",
		Price:  fee.Div(hundred).StringFixed(2),
		Code:   "STANDARD",
		Source: "custom",
	}}
}

// splitName cuts a full name into the platform's first/last pair. The
// platform rejects an empty last name, hence the "." placeholder.
func splitName(name string) (first, last string) {
	first, last, found := strings.Cut(strings.TrimSpace(name), " ")
	if !found || last == "" {
		last = "."
	}
	return first, last
}
