package coupon

import (
	"context"

	"github.com/go-faster/errors"
)

// RuleValidator implements Validator by matching the code against the
// platform's price-rule titles.
type RuleValidator struct {
	rules RuleSource
}

// NewRuleValidator creates a RuleValidator backed by the given RuleSource.
func NewRuleValidator(rules RuleSource) *RuleValidator {
	return &RuleValidator{rules: rules}
}

// Validate fetches the current rule catalog and matches code against rule
// titles. Matching is exact and case-sensitive; the first match in catalog
// order wins. An empty code short-circuits to an invalid term without
// touching the platform. The validator fails closed: when the catalog cannot
// be fetched it returns an invalid term alongside the error so callers can
// log and proceed without a discount.
func (v *RuleValidator) Validate(ctx context.Context, code string) (Term, error) {
	if code == "" {
		return Term{}, nil
	}

	rules, err := v.rules.PriceRules(ctx)
	if err != nil {
		return Term{Code: code}, errors.Wrap(err, "fetch price rules")
	}

	for _, rule := range rules {
		if rule.Title == code {
			return Term{
				Code:  code,
				Valid: true,
				Value: rule.Value,
				Kind:  rule.ValueType,
			}, nil
		}
	}

	return Term{Code: code}, nil
}
