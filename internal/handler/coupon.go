package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/badixth/chip-in-backend/internal/pricing"
)

type validateCouponRequest struct {
	CouponCode string            `json:"coupon_code"`
	Items      []couponCheckItem `json:"items"`
}

// couponCheckItem is the cart line shape of the validation endpoint: unit
// price and quantity only, unlike the full checkout line item.
type couponCheckItem struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

type validateCouponResponse struct {
	Valid                    bool              `json:"valid"`
	Discount                 decimal.Decimal   `json:"discount"`
	Items                    []couponCheckItem `json:"items"`
	TotalPriceBeforeDiscount decimal.Decimal   `json:"total_price_before_discount"`
	TotalPriceAfterDiscount  decimal.Decimal   `json:"total_price_after_discount"`
	DiscountValue            decimal.Decimal   `json:"discount_value"`
}

type couponRejection struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// validateCoupon prices a cart against a coupon without creating anything.
// Validity is checked before the breakdown is computed, so an unknown code
// is a clean 400 instead of a pricing pass over an absent discount.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req validateCouponRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, couponRejection{Message: "malformed request: " + err.Error()})
		return
	}
	if req.CouponCode == "" {
		respondJSON(w, http.StatusBadRequest, couponRejection{Message: "No coupon code provided"})
		return
	}

	term, err := h.coupons.Validate(ctx, req.CouponCode)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	if !term.Valid {
		respondJSON(w, http.StatusBadRequest, couponRejection{Message: "Invalid coupon code"})
		return
	}

	items := make([]pricing.BreakdownItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, pricing.BreakdownItem{
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	breakdown := pricing.CouponBreakdown(items, term)

	respondJSON(w, http.StatusOK, validateCouponResponse{
		Valid:                    true,
		Discount:                 term.Value,
		Items:                    req.Items,
		TotalPriceBeforeDiscount: breakdown.TotalBefore,
		TotalPriceAfterDiscount:  breakdown.TotalAfter,
		DiscountValue:            breakdown.Discount,
	})
}
