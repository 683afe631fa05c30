package checkout

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/badixth/chip-in-backend/internal/chip"
	"github.com/badixth/chip-in-backend/internal/coupon"
	"github.com/badixth/chip-in-backend/internal/pricing"
)

// Gateway opens hosted payment sessions.
type Gateway interface {
	CreatePurchase(ctx context.Context, req *chip.PurchaseRequest) (*chip.Purchase, error)
}

// Config holds the non-dependency settings of the initiator.
type Config struct {
	// StoreURL is the storefront base URL the payer is redirected back to.
	StoreURL string
	// BrandID is the gateway merchant brand.
	BrandID string
}

// Initiator prices a checkout request and opens the payment session.
type Initiator struct {
	cfg     Config
	coupons coupon.Validator
	gateway Gateway
}

// NewInitiator constructs an Initiator with the required dependencies.
func NewInitiator(cfg Config, coupons coupon.Validator, gateway Gateway) *Initiator {
	return &Initiator{
		cfg:     cfg,
		coupons: coupons,
		gateway: gateway,
	}
}

// Session is a successfully opened hosted checkout.
type Session struct {
	CheckoutURL string
}

// CreateSession validates the request, allocates the coupon discount under
// the per-checkout budget, computes shipping, and opens a gateway session.
// raw must be the undecoded request body; it travels as opaque session
// metadata and is the only state available to the payment webhook later.
func (s *Initiator) CreateSession(ctx context.Context, req *CheckoutRequest, raw json.RawMessage) (*Session, error) {
	ct, err := req.resolveContact()
	if err != nil {
		return nil, err
	}

	// Fail closed on coupon lookup problems: the checkout proceeds without a
	// discount rather than erroring out.
	term, err := s.coupons.Validate(ctx, req.CouponCode)
	if err != nil {
		zctx.From(ctx).Warn("Coupon validation failed, proceeding without discount",
			zap.String("coupon_code", req.CouponCode),
			zap.Error(err),
		)
		term = coupon.Term{}
	}

	if err := ValidateItems(req.Items); err != nil {
		return nil, err
	}

	fee := pricing.ShippingFee(ct.Address.Country, ct.Address.Province, AnyNeedsShipping(req.Items))

	finalPrices := finalLinePrices(req.Items)
	alloc := pricing.Allocate(finalPrices, term, fee)

	purchase := s.buildPurchase(req, ct, alloc.Total.InexactFloat64(), raw)

	created, err := s.gateway.CreatePurchase(ctx, purchase)
	if err != nil {
		return nil, errors.Wrap(err, "create purchase session")
	}

	zctx.From(ctx).Info("Payment session created",
		zap.String("purchase_id", created.ID),
		zap.String("order_id", string(req.OrderID)),
		zap.String("total_override", alloc.Total.String()),
		zap.String("discount", alloc.Discount.String()),
	)

	return &Session{CheckoutURL: created.CheckoutURL}, nil
}

func finalLinePrices(items []LineItem) []decimal.Decimal {
	prices := make([]decimal.Decimal, len(items))
	for i, item := range items {
		prices[i] = item.FinalLinePrice
	}
	return prices
}

func (s *Initiator) buildPurchase(req *CheckoutRequest, ct contact, totalOverride float64, raw json.RawMessage) *chip.PurchaseRequest {
	products := make([]chip.Product, len(req.Items))
	for i, item := range req.Items {
		// Platform-native prices go to the gateway; the discount shows up
		// only in the aggregate total override.
		products[i] = chip.Product{
			ProductID:         item.ProductID,
			Name:              item.Name,
			Price:             item.OriginalPrice.InexactFloat64(),
			Quantity:          item.Quantity.InexactFloat64(),
			Category:          item.VariantID,
			TotalDiscount:     item.TotalDiscount.InexactFloat64(),
			FinalLinePrice:    item.FinalLinePrice.InexactFloat64(),
			OriginalLinePrice: item.OriginalLinePrice.InexactFloat64(),
			RequiresShipping:  item.NeedsShipping(),
		}
	}

	return &chip.PurchaseRequest{
		Client: chip.ClientInfo{
			Email:                 ct.Email,
			Phone:                 ct.Phone,
			FullName:              ct.Name,
			ShippingStreetAddress: ct.Address.Address1,
			ShippingCountry:       ct.Address.Country,
			ShippingCity:          ct.Address.City,
			ShippingZipCode:       ct.Address.Zip,
			ShippingState:         ct.Address.Province,
			State:                 req.ConsentState(),
		},
		Purchase: chip.PurchaseDetails{
			Products:      products,
			TotalOverride: totalOverride,
			Currency:      "MYR",
			Metadata:      chip.Metadata{ShopifyPayload: raw},
		},
		SuccessRedirect: s.cfg.StoreURL + "/pages/thank-you-page?order_id=" + string(req.OrderID) + "&status=paid",
		Notes:           req.Notes,
		BrandID:         s.cfg.BrandID,
	}
}
