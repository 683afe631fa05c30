package shopify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, fn http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(fn)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		StoreURL:    srv.URL,
		AccessToken: "shpat_test",
		HTTPClient:  srv.Client(),
	})
}

func TestClient_SendsAccessToken(t *testing.T) {
	var gotToken string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		_, _ = w.Write([]byte(`{"price_rules":[]}`))
	})

	_, err := c.PriceRules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shpat_test", gotToken)
}

func TestClient_GetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"price_rules":[{"title":"SAVE10","value":"-10.0","value_type":"percentage"}]}`))
	})

	rules, err := c.PriceRules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, rules, 1)
	assert.Equal(t, "SAVE10", rules[0].Title)
	assert.True(t, rules[0].Value.Equal(decimal.NewFromInt(-10)))
	assert.Equal(t, "percentage", rules[0].ValueType)
}

func TestClient_GetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":"Not Found"}`))
	})

	_, err := c.GetProduct(context.Background(), 11)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestSearchCustomerByPhone_RetriesWithoutCountryCode(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		queries = append(queries, q)
		if q == "phone:0123456789" {
			_, _ = w.Write([]byte(`{"customers":[{"id":77,"phone":"0123456789"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"customers":[]}`))
	})

	customer, err := c.SearchCustomerByPhone(context.Background(), "+600123456789")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, int64(77), customer.ID)
	assert.Equal(t, []string{"phone:+600123456789", "phone:0123456789"}, queries)
}

func TestSearchCustomerByEmail_FirstMatchWins(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"customers":[{"id":1,"email":"a@example.com"},{"id":2,"email":"a@example.com"}]}`))
	})

	customer, err := c.SearchCustomerByEmail(context.Background(), "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, int64(1), customer.ID)
}

func TestSearchCustomer_NoMatchIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"customers":[]}`))
	})

	customer, err := c.SearchCustomerByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, customer)
}

func TestCreateOrder_PostsEnvelopeAndReadsCustomer(t *testing.T) {
	var gotPath, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order":{"id":5001,"customer":{"id":77}}}`))
	})

	created, err := c.CreateOrder(context.Background(), &OrderRequest{FinancialStatus: "paid"})
	require.NoError(t, err)
	assert.Equal(t, "/admin/api/2024-10/orders.json", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, int64(5001), created.ID)
	require.NotNil(t, created.Customer)
	assert.Equal(t, int64(77), created.Customer.ID)
}

func TestCreateOrder_NotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.CreateOrder(context.Background(), &OrderRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEnsureWebhook_SkipsExisting(t *testing.T) {
	var created atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			created.Add(1)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"webhook":{"id":1}}`))
			return
		}
		_, _ = w.Write([]byte(`{"webhooks":[{"id":1,"topic":"orders/paid","address":"https://relay.example/shopify-webhook"}]}`))
	})

	ok, err := c.EnsureWebhook(context.Background(), "orders/paid", "https://relay.example/shopify-webhook")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, created.Load())

	ok, err = c.EnsureWebhook(context.Background(), "orders/paid", "https://other.example/shopify-webhook")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), created.Load())
}
