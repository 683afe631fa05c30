// Package checkout implements the session initiator: it validates a
// storefront checkout submission, prices it with the coupon and shipping
// rules, and opens a hosted payment session with the gateway.
package checkout

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Form types discriminate the checkout payload shape.
const (
	FormRegular = "regular"
	FormAcademy = "academy"
)

// ValidationError rejects a checkout request before any order-side effects.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(msg string) error {
	return &ValidationError{Message: msg}
}

// FlexID is an identifier that storefronts send either as a JSON string or
// as a number.
type FlexID string

// UnmarshalJSON accepts both `"123"` and `123`.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		s = ""
	}
	*f = FlexID(s)
	return nil
}

// Address is the storefront's shipping address shape.
type Address struct {
	Address1 string `json:"address"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// Player is the nested participant record of the academy form; it carries
// both identity and address fields.
type Player struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address1 string `json:"address"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// LineItem is one cart line as submitted by the storefront. Prices are in
// sen; quantity is integer-valued but transported as a decimal string.
type LineItem struct {
	ProductID         int64           `json:"product_id"`
	VariantID         int64           `json:"variant_id"`
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	OriginalPrice     decimal.Decimal `json:"original_price"`
	OriginalLinePrice decimal.Decimal `json:"original_line_price"`
	TotalDiscount     decimal.Decimal `json:"total_discount"`
	FinalLinePrice    decimal.Decimal `json:"final_line_price"`
	RequiresShipping  *bool           `json:"requires_shipping"`
}

// NeedsShipping reports whether the item requires physical shipping.
// Absent means yes.
func (i LineItem) NeedsShipping() bool {
	return i.RequiresShipping == nil || *i.RequiresShipping
}

// CheckoutRequest is the storefront checkout submission. The regular form
// carries contact and address fields at the top level; the academy form
// nests them in player_1.
type CheckoutRequest struct {
	FormType                   string          `json:"formType"`
	Name                       string          `json:"name"`
	Email                      string          `json:"email"`
	Phone                      string          `json:"phone"`
	Address                    *Address        `json:"address"`
	Player1                    *Player         `json:"player_1"`
	EmailMarketingConsentState string          `json:"email_marketing_consent_state"`
	Notes                      string          `json:"notes"`
	CouponCode                 string          `json:"coupon_code"`
	OrderID                    FlexID          `json:"order_id"`
	Items                      []LineItem      `json:"items"`
	Attributes                 json.RawMessage `json:"attributes"`
}

// contact is the resolved identity and destination of a checkout, regardless
// of form variant.
type contact struct {
	Name    string
	Email   string
	Phone   string
	Address Address
}

// resolveContact extracts and validates the contact fields per form variant.
//
// The regular form requires name, email, phone, address and items. The
// academy form only requires the player record's identity fields; it has
// never had an address-presence check, and that asymmetry is kept as-is
// until product confirms it is unintended.
func (r *CheckoutRequest) resolveContact() (contact, error) {
	switch r.FormType {
	case FormRegular:
		if r.Name == "" || r.Email == "" || r.Phone == "" || r.Address == nil || len(r.Items) == 0 {
			return contact{}, validationErrorf("missing required fields")
		}
		return contact{
			Name:    r.Name,
			Email:   r.Email,
			Phone:   r.Phone,
			Address: *r.Address,
		}, nil

	case FormAcademy:
		p := r.Player1
		if p == nil || p.Name == "" || p.Email == "" || p.Phone == "" {
			return contact{}, validationErrorf("missing player details")
		}
		return contact{
			Name:  p.Name,
			Email: p.Email,
			Phone: p.Phone,
			Address: Address{
				Address1: p.Address1,
				City:     p.City,
				Province: p.Province,
				Zip:      p.Zip,
				Country:  p.Country,
			},
		}, nil

	default:
		return contact{}, validationErrorf("unknown form type")
	}
}

// ConsentState returns the requested email-marketing consent state,
// defaulting to unsubscribed.
func (r *CheckoutRequest) ConsentState() string {
	if r.EmailMarketingConsentState == "" {
		return "unsubscribed"
	}
	return r.EmailMarketingConsentState
}

// ValidateItems enforces the line-item money conservation invariants to two
// decimal places:
//
//	original_line_price == original_price * quantity
//	final_line_price    == original_line_price - total_discount
//
// A violation is a hard rejection of the whole request, never a silent
// correction.
func ValidateItems(items []LineItem) error {
	for _, item := range items {
		wantLine := item.OriginalPrice.Mul(item.Quantity).Round(2)
		if !item.OriginalLinePrice.Round(2).Equal(wantLine) {
			return validationErrorf("item price mismatch: original line price")
		}
		wantFinal := item.OriginalLinePrice.Sub(item.TotalDiscount).Round(2)
		if !item.FinalLinePrice.Round(2).Equal(wantFinal) {
			return validationErrorf("item price mismatch: final line price")
		}
	}
	return nil
}

// AnyNeedsShipping reports whether at least one item requires shipping.
func AnyNeedsShipping(items []LineItem) bool {
	for _, item := range items {
		if item.NeedsShipping() {
			return true
		}
	}
	return false
}
