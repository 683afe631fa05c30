package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badixth/chip-in-backend/internal/checkout"
	"github.com/badixth/chip-in-backend/internal/chip"
	"github.com/badixth/chip-in-backend/internal/coupon"
	"github.com/badixth/chip-in-backend/internal/reconcile"
)

// --- Mock implementations ---

type mockInitiator struct {
	session *checkout.Session
	err     error
	lastRaw json.RawMessage
}

func (m *mockInitiator) CreateSession(_ context.Context, _ *checkout.CheckoutRequest, raw json.RawMessage) (*checkout.Session, error) {
	m.lastRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

type mockProcessor struct {
	outcome reconcile.Outcome
	err     error
	lastEv  *chip.WebhookEvent
}

func (m *mockProcessor) Process(_ context.Context, ev *chip.WebhookEvent) (reconcile.Outcome, error) {
	m.lastEv = ev
	return m.outcome, m.err
}

type mockValidator struct {
	term coupon.Term
	err  error
}

func (m *mockValidator) Validate(_ context.Context, code string) (coupon.Term, error) {
	if m.err != nil {
		return coupon.Term{Code: code}, m.err
	}
	return m.term, nil
}

func newTestServer(sessions SessionInitiator, events EventProcessor, coupons coupon.Validator) *httptest.Server {
	mux := http.NewServeMux()
	NewHandler(sessions, events, coupons).Routes(mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

const regularCheckoutBody = `{
	"formType": "regular",
	"name": "Aina Rahman",
	"email": "aina@example.com",
	"phone": "+60123456789",
	"address": {"address": "12 Jalan Ampang", "city": "Kuala Lumpur", "province": "MY-14", "zip": "50450", "country": "MY"},
	"items": [{
		"product_id": 11,
		"variant_id": 21,
		"quantity": "1",
		"original_price": "10000",
		"original_line_price": "10000",
		"total_discount": "0",
		"final_line_price": "10000"
	}]
}`

func TestCreateSession_Success(t *testing.T) {
	sessions := &mockInitiator{session: &checkout.Session{CheckoutURL: "https://gate.example/p/abc"}}
	srv := newTestServer(sessions, &mockProcessor{}, &mockValidator{})
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/create-chip-in-session", regularCheckoutBody)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "https://gate.example/p/abc", body["checkout_url"])
	// The raw body travels into the session untouched.
	assert.JSONEq(t, regularCheckoutBody, string(sessions.lastRaw))
}

func TestCreateSession_InvalidJSON(t *testing.T) {
	srv := newTestServer(&mockInitiator{}, &mockProcessor{}, &mockValidator{})
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/create-chip-in-session", `{"formType":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestCreateSession_ValidationErrorIs400(t *testing.T) {
	sessions := &mockInitiator{err: &checkout.ValidationError{Message: "missing required fields"}}
	srv := newTestServer(sessions, &mockProcessor{}, &mockValidator{})
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/create-chip-in-session", regularCheckoutBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing required fields", body["error"])
}

func TestCreateSession_GatewayErrorIs400(t *testing.T) {
	sessions := &mockInitiator{err: &chip.APIError{Status: 422, Body: []byte(`{"detail":"bad brand"}`)}}
	srv := newTestServer(sessions, &mockProcessor{}, &mockValidator{})
	defer srv.Close()

	resp, _ := postJSON(t, srv.URL+"/create-chip-in-session", regularCheckoutBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateSession_UnexpectedErrorIs500(t *testing.T) {
	sessions := &mockInitiator{err: assert.AnError}
	srv := newTestServer(sessions, &mockProcessor{}, &mockValidator{})
	defer srv.Close()

	resp, _ := postJSON(t, srv.URL+"/create-chip-in-session", regularCheckoutBody)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGatewayWebhook_Created(t *testing.T) {
	events := &mockProcessor{outcome: reconcile.OutcomeCreated}
	srv := newTestServer(&mockInitiator{}, events, &mockValidator{})
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/chipin-webhook", `{"id":"evt_1","status":"paid"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "order created", body["status"])
	require.NotNil(t, events.lastEv)
	assert.Equal(t, "evt_1", events.lastEv.ID)
}

func TestGatewayWebhook_IgnoredStillAcknowledged(t *testing.T) {
	events := &mockProcessor{outcome: reconcile.OutcomeIgnored}
	srv := newTestServer(&mockInitiator{}, events, &mockValidator{})
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/chipin-webhook", `{"id":"evt_1","status":"created"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ignored", body["status"])
}

func TestGatewayWebhook_ProcessingFailureIs400(t *testing.T) {
	events := &mockProcessor{outcome: reconcile.OutcomeFailed, err: assert.AnError}
	srv := newTestServer(&mockInitiator{}, events, &mockValidator{})
	defer srv.Close()

	resp, _ := postJSON(t, srv.URL+"/chipin-webhook", `{"id":"evt_1","status":"paid"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlatformWebhook_AlwaysAcknowledges(t *testing.T) {
	srv := newTestServer(&mockInitiator{}, &mockProcessor{}, &mockValidator{})
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/shopify-webhook", `{"id":9001,"financial_status":"paid"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acknowledged", body["status"])
}

func TestValidateCoupon_MissingCode(t *testing.T) {
	srv := newTestServer(&mockInitiator{}, &mockProcessor{}, &mockValidator{})
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/validate-coupon", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "No coupon code provided", body["message"])
}

func TestValidateCoupon_InvalidCode(t *testing.T) {
	coupons := &mockValidator{term: coupon.Term{Code: "NOPE"}}
	srv := newTestServer(&mockInitiator{}, &mockProcessor{}, coupons)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/validate-coupon", `{"coupon_code":"NOPE","items":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid coupon code", body["message"])
}

func TestValidateCoupon_Breakdown(t *testing.T) {
	coupons := &mockValidator{term: coupon.Term{
		Code:  "SAVE10",
		Valid: true,
		Value: decimal.NewFromInt(-10),
		Kind:  coupon.ValueKindPercentage,
	}}
	srv := newTestServer(&mockInitiator{}, &mockProcessor{}, coupons)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/validate-coupon",
		`{"coupon_code":"SAVE10","items":[{"price":"5000","quantity":"2"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "10000", body["total_price_before_discount"])
	assert.Equal(t, "9000", body["total_price_after_discount"])
	assert.Equal(t, "1000", body["discount_value"])
}

func TestValidateCoupon_LookupFailure(t *testing.T) {
	coupons := &mockValidator{err: assert.AnError}
	srv := newTestServer(&mockInitiator{}, &mockProcessor{}, coupons)
	defer srv.Close()

	resp, _ := postJSON(t, srv.URL+"/validate-coupon", `{"coupon_code":"SAVE10","items":[]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
