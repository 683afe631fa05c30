package coupon

import (
	"context"

	"github.com/shopspring/decimal"
)

// ValueKind enumerates the price-rule value types the pricing engine
// understands. Any other kind zeroes the item price (see pricing.AdjustedPrice).
const (
	ValueKindPercentage  = "percentage"
	ValueKindFixedAmount = "fixed_amount"
)

// Term is the result of validating a coupon code against the platform's
// price-rule catalog. It is request-scoped and never cached.
type Term struct {
	Code  string
	Valid bool
	// Value is the rule magnitude. The platform stores discounts as negative
	// values; the pricing engine relies on that convention.
	Value decimal.Decimal
	Kind  string
}

// Rule is a single discount definition from the platform catalog.
type Rule struct {
	Title     string
	Value     decimal.Decimal
	ValueType string
}

// RuleSource lists the platform's discount rules. The list is unbounded and
// unpaginated; an empty list is a valid response.
type RuleSource interface {
	PriceRules(ctx context.Context) ([]Rule, error)
}

// Validator validates a coupon code and returns its discount terms.
type Validator interface {
	Validate(ctx context.Context, code string) (Term, error)
}
