package order

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badixth/chip-in-backend/internal/checkout"
	"github.com/badixth/chip-in-backend/internal/coupon"
	"github.com/badixth/chip-in-backend/internal/shopify"
)

type mockPlatform struct {
	byEmail   *shopify.Customer
	byPhone   *shopify.Customer
	searchErr error

	created    *shopify.OrderRequest
	createErr  error
	response   *shopify.CreatedOrder
	consentID  int64
	consent    string
	consentErr error
}

func (m *mockPlatform) SearchCustomerByEmail(_ context.Context, _ string) (*shopify.Customer, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.byEmail, nil
}

func (m *mockPlatform) SearchCustomerByPhone(_ context.Context, _ string) (*shopify.Customer, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.byPhone, nil
}

func (m *mockPlatform) CreateOrder(_ context.Context, order *shopify.OrderRequest) (*shopify.CreatedOrder, error) {
	m.created = order
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.response, nil
}

func (m *mockPlatform) UpdateCustomerConsent(_ context.Context, customerID int64, state string) error {
	m.consentID = customerID
	m.consent = state
	return m.consentErr
}

type staticValidator struct {
	term coupon.Term
	err  error
}

func (v *staticValidator) Validate(_ context.Context, code string) (coupon.Term, error) {
	if v.err != nil {
		return coupon.Term{Code: code}, v.err
	}
	return v.term, nil
}

func regularRequest() Request {
	return Request{
		Name:  "Aina Rahman",
		Email: "aina@example.com",
		Phone: "+60123456789",
		Address: checkout.Address{
			Address1: "12 Jalan Ampang",
			City:     "Kuala Lumpur",
			Province: "MY-14",
			Zip:      "50450",
			Country:  "MY",
		},
		Items: []checkout.LineItem{{
			ProductID:         11,
			VariantID:         21,
			Name:              "Training Tee",
			Quantity:          decimal.NewFromInt(2),
			OriginalPrice:     decimal.NewFromInt(5000),
			OriginalLinePrice: decimal.NewFromInt(10000),
			TotalDiscount:     decimal.Zero,
			FinalLinePrice:    decimal.NewFromInt(10000),
		}},
		Attributes:   json.RawMessage(`{"formType":"regular"}`),
		ConsentState: "subscribed",
	}
}

func newTestMaterializer(platform *mockPlatform, validator coupon.Validator) *Materializer {
	return NewMaterializer(platform, validator, NewSequenceGenerator(&mockCatalog{}))
}

func TestMaterializer_ExistingCustomerByEmail(t *testing.T) {
	platform := &mockPlatform{
		byEmail:  &shopify.Customer{ID: 77, Email: "aina@example.com"},
		response: &shopify.CreatedOrder{ID: 5001, Customer: &shopify.Customer{ID: 77}},
	}
	m := newTestMaterializer(platform, &staticValidator{})

	res, err := m.CreateOrder(context.Background(), regularRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(5001), res.OrderID)
	assert.Equal(t, int64(77), res.CustomerID)

	order := platform.created
	require.NotNil(t, order)
	assert.Equal(t, int64(77), order.Customer.ID)
	assert.Empty(t, order.Customer.Email)
	assert.Equal(t, "paid", order.FinancialStatus)
	assert.Equal(t, "decrement_obeying_policy", order.InventoryBehaviour)
	assert.True(t, order.SendReceipt)
}

func TestMaterializer_FallsBackToPhoneLookup(t *testing.T) {
	platform := &mockPlatform{
		byPhone:  &shopify.Customer{ID: 91, Phone: "+60123456789"},
		response: &shopify.CreatedOrder{ID: 5013, Customer: &shopify.Customer{ID: 91}},
	}
	m := newTestMaterializer(platform, &staticValidator{})

	_, err := m.CreateOrder(context.Background(), regularRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(91), platform.created.Customer.ID)
}

func TestMaterializer_NewCustomerWhenLookupMisses(t *testing.T) {
	platform := &mockPlatform{
		response: &shopify.CreatedOrder{ID: 5002, Customer: &shopify.Customer{ID: 88}},
	}
	m := newTestMaterializer(platform, &staticValidator{})

	res, err := m.CreateOrder(context.Background(), regularRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(88), res.CustomerID)

	order := platform.created
	assert.Zero(t, order.Customer.ID)
	assert.Equal(t, "aina@example.com", order.Customer.Email)
	assert.Equal(t, "Aina", order.Customer.FirstName)
	assert.Equal(t, "Rahman", order.Customer.LastName)
}

func TestMaterializer_LookupFailureDegradesToNewCustomer(t *testing.T) {
	platform := &mockPlatform{
		searchErr: assert.AnError,
		response:  &shopify.CreatedOrder{ID: 5003},
	}
	m := newTestMaterializer(platform, &staticValidator{})

	res, err := m.CreateOrder(context.Background(), regularRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(5003), res.OrderID)
	assert.Zero(t, platform.created.Customer.ID)
}

func TestMaterializer_OrderPayloadAmounts(t *testing.T) {
	platform := &mockPlatform{response: &shopify.CreatedOrder{ID: 5004}}
	m := newTestMaterializer(platform, &staticValidator{
		term: coupon.Term{
			Code:  "SAVE10",
			Valid: true,
			Value: decimal.NewFromInt(-10),
			Kind:  coupon.ValueKindPercentage,
		},
	})

	req := regularRequest()
	req.CouponCode = "SAVE10"
	_, err := m.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	order := platform.created
	require.Len(t, order.LineItems, 1)
	line := order.LineItems[0]
	assert.Equal(t, int64(2), line.Quantity)
	assert.True(t, line.Price.Equal(decimal.NewFromInt(50)), "price %s", line.Price)
	assert.True(t, line.FinalLinePrice.Equal(decimal.NewFromInt(100)))

	require.Len(t, order.DiscountCodes, 1)
	dc := order.DiscountCodes[0]
	assert.Equal(t, "SAVE10", dc.Code)
	assert.True(t, dc.Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "percentage", dc.Type)

	require.Len(t, order.ShippingLines, 1)
	assert.Equal(t, "7.00", order.ShippingLines[0].Price)

	assert.Equal(t, "12 Jalan Ampang", order.ShippingAddress.Address1)
	assert.Equal(t, "+60123456789", order.ShippingAddress.Phone)
}

func TestMaterializer_InvalidCouponYieldsNoDiscountCodes(t *testing.T) {
	platform := &mockPlatform{response: &shopify.CreatedOrder{ID: 5005}}
	m := newTestMaterializer(platform, &staticValidator{term: coupon.Term{Code: "NOPE"}})

	req := regularRequest()
	req.CouponCode = "NOPE"
	_, err := m.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, platform.created.DiscountCodes)
	assert.Empty(t, platform.created.DiscountCodes)
}

func TestMaterializer_CouponLookupErrorStillCreatesOrder(t *testing.T) {
	platform := &mockPlatform{response: &shopify.CreatedOrder{ID: 5006}}
	m := newTestMaterializer(platform, &staticValidator{err: assert.AnError})

	req := regularRequest()
	req.CouponCode = "SAVE10"
	_, err := m.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, platform.created.DiscountCodes)
}

func TestMaterializer_FreeShippingKeepsShippingLine(t *testing.T) {
	platform := &mockPlatform{response: &shopify.CreatedOrder{ID: 5007}}
	m := newTestMaterializer(platform, &staticValidator{})

	req := regularRequest()
	digital := false
	req.Items[0].RequiresShipping = &digital
	_, err := m.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, platform.created.ShippingLines, 1)
	assert.Equal(t, "Standard Shipping", platform.created.ShippingLines[0].Title)
	assert.Equal(t, "0.00", platform.created.ShippingLines[0].Price)
}

func TestMaterializer_PlayerDataMetafield(t *testing.T) {
	platform := &mockPlatform{response: &shopify.CreatedOrder{ID: 5008}}
	m := newTestMaterializer(platform, &staticValidator{})

	req := regularRequest()
	req.Attributes = json.RawMessage(`{"formType":"regular","jersey":"M"}`)
	_, err := m.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, platform.created.Metafields, 1)
	mf := platform.created.Metafields[0]
	assert.Equal(t, "player_data", mf.Key)
	assert.Equal(t, "json", mf.Type)
	assert.JSONEq(t, `{"formType":"regular","jersey":"M"}`, mf.Value)
}

func TestMaterializer_InvalidAttributesFallBackToEmptyObject(t *testing.T) {
	platform := &mockPlatform{response: &shopify.CreatedOrder{ID: 5009}}
	m := newTestMaterializer(platform, &staticValidator{})

	req := regularRequest()
	req.Attributes = json.RawMessage(`{"formType":`)
	_, err := m.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "{}", platform.created.Metafields[0].Value)
}

func TestMaterializer_AcademyOrderGetsClassID(t *testing.T) {
	platform := &mockPlatform{response: &shopify.CreatedOrder{ID: 5010}}
	catalog := &mockCatalog{
		products: map[int64]*shopify.Product{
			11: {ID: 11, Tags: "academy_beginner, batch_7, squad"},
		},
		metafields: map[int64][]shopify.Metafield{
			11: {{ID: 900, Namespace: "custom", Key: "purchase_count", Value: "4"}},
		},
	}
	m := NewMaterializer(platform, &staticValidator{}, NewSequenceGenerator(catalog))

	req := regularRequest()
	req.Attributes = json.RawMessage(`{"formType":"academy"}`)
	req.Items[0].Quantity = decimal.NewFromInt(1)
	_, err := m.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, platform.created.Metafields, 2)
	classMF := platform.created.Metafields[1]
	assert.Equal(t, "class_id", classMF.Key)
	assert.Equal(t, "VAB7SQ005P", classMF.Value)
}

func TestMaterializer_ConsentUpdatedAfterOrder(t *testing.T) {
	platform := &mockPlatform{
		response: &shopify.CreatedOrder{ID: 5011, Customer: &shopify.Customer{ID: 77}},
	}
	m := newTestMaterializer(platform, &staticValidator{})

	_, err := m.CreateOrder(context.Background(), regularRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(77), platform.consentID)
	assert.Equal(t, "subscribed", platform.consent)
}

func TestMaterializer_ConsentFailureDoesNotFailOrder(t *testing.T) {
	platform := &mockPlatform{
		response:   &shopify.CreatedOrder{ID: 5012, Customer: &shopify.Customer{ID: 77}},
		consentErr: assert.AnError,
	}
	m := newTestMaterializer(platform, &staticValidator{})

	res, err := m.CreateOrder(context.Background(), regularRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(5012), res.OrderID)
}

func TestMaterializer_CreateOrderErrorPropagates(t *testing.T) {
	platform := &mockPlatform{createErr: assert.AnError}
	m := newTestMaterializer(platform, &staticValidator{})

	_, err := m.CreateOrder(context.Background(), regularRequest())
	require.Error(t, err)
	assert.Zero(t, platform.consentID)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"Aina Rahman", "Aina", "Rahman"},
		{"Aina", "Aina", "."},
		{"Aina binti Rahman", "Aina", "binti Rahman"},
		{"  Aina  ", "Aina", "."},
		{"", "", "."},
	}
	for _, tt := range tests {
		first, last := splitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}
