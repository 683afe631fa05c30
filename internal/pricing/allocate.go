// Package pricing holds the pure money functions of the checkout flow:
// per-item discount adjustment, budget-capped allocation across a cart,
// and shipping fees. All amounts are in sen (minor currency units) unless
// stated otherwise; there is no I/O here.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/badixth/chip-in-backend/internal/coupon"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero

	// fixedFloor is the price a fixed-amount discount bottoms out at when it
	// would otherwise drive the item price to zero or below. The gateway
	// rejects zero-priced lines, hence 0.1 sen rather than 0.
	fixedFloor = decimal.RequireFromString("0.1")

	// budget caps the total discount granted in a single checkout:
	// 2000 sen = 20 ringgit.
	budget = decimal.NewFromInt(2000)
)

// AdjustedPrice applies a single discount rule to one price.
//
// The platform stores discount magnitudes as negative values, so for both the
// percentage and fixed-amount kinds the result is price plus a negative
// adjustment. No sign validation is performed; a positive value increases the
// price. A fixed-amount value is scaled by 100 (the catalog stores it in major
// units) and floored at 0.1 when it would consume the whole price.
//
// An unrecognized kind returns 0, making the item free. Callers must only
// pass terms that were validated upstream; the zero result for unknown kinds
// is pinned by TestAdjustedPrice_UnknownKindZeroes.
func AdjustedPrice(price, value decimal.Decimal, kind string) decimal.Decimal {
	switch kind {
	case coupon.ValueKindPercentage:
		return price.Add(price.Mul(value).Div(hundred))
	case coupon.ValueKindFixedAmount:
		scaled := value.Mul(hundred)
		if price.LessThanOrEqual(scaled.Neg()) {
			return fixedFloor
		}
		return price.Add(scaled)
	default:
		return zero
	}
}

// Allocation is the result of distributing a coupon across a cart.
type Allocation struct {
	// ItemPrices holds the adjusted price per item, in input order.
	ItemPrices []decimal.Decimal
	// Discount is the total discount granted, never above the budget.
	Discount decimal.Decimal
	// Total is the sum of adjusted prices plus the shipping fee. It is sent
	// to the gateway verbatim as the session total override.
	Total decimal.Decimal
}

// Allocate distributes the coupon's discount across the items' final line
// prices in the order supplied by the client. The granted discount is capped
// by the per-checkout budget: the item that would exceed the remaining budget
// is clamped to exactly exhaust it and the coupon is invalidated for every
// subsequent item in the same request.
func Allocate(finalLinePrices []decimal.Decimal, term coupon.Term, shippingFee decimal.Decimal) Allocation {
	valid := term.Valid
	remaining := budget
	total := zero
	discount := zero

	prices := make([]decimal.Decimal, len(finalLinePrices))
	for i, price := range finalLinePrices {
		adjusted := price
		if valid {
			adjusted = AdjustedPrice(price, term.Value, term.Kind)
			granted := price.Sub(adjusted)
			if granted.GreaterThan(remaining) {
				adjusted = price.Sub(remaining)
				granted = remaining
				valid = false
			}
			remaining = remaining.Sub(granted)
			discount = discount.Add(granted)
		}
		prices[i] = adjusted
		total = total.Add(adjusted)
	}

	return Allocation{
		ItemPrices: prices,
		Discount:   discount,
		Total:      total.Add(shippingFee),
	}
}

// BreakdownItem is a cart line for the standalone coupon-pricing breakdown:
// a unit price and a quantity, both as supplied by the storefront.
type BreakdownItem struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Breakdown summarizes the effect of a coupon on a cart.
type Breakdown struct {
	TotalBefore decimal.Decimal
	TotalAfter  decimal.Decimal
	Discount    decimal.Decimal
}

// CouponBreakdown prices a cart with and without the coupon. Unlike Allocate
// it works from unit price times quantity, and the discount stops for the
// rest of the cart only once the budget is fully spent.
func CouponBreakdown(items []BreakdownItem, term coupon.Term) Breakdown {
	remaining := budget
	before := zero
	after := zero

	for _, item := range items {
		price := item.Price.Mul(item.Quantity)
		before = before.Add(price)

		adjusted := price
		if term.Valid && remaining.GreaterThan(zero) {
			adjusted = AdjustedPrice(price, term.Value, term.Kind)
			if price.Sub(adjusted).GreaterThan(remaining) {
				adjusted = price.Sub(remaining)
			}
			remaining = remaining.Sub(price.Sub(adjusted))
		}
		after = after.Add(adjusted)
	}

	return Breakdown{
		TotalBefore: before,
		TotalAfter:  after,
		Discount:    before.Sub(after),
	}
}
