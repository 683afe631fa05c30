package shopify

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Customer is the subset of the platform customer record the relay uses.
type Customer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type customerSearchResponse struct {
	Customers []Customer `json:"customers"`
}

// SearchCustomerByEmail returns the first customer matching the email, or
// nil when none is found.
func (c *Client) SearchCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	return c.searchCustomer(ctx, "email:"+email)
}

// SearchCustomerByPhone returns the first customer matching the phone
// number. Numbers stored without the Malaysian country code are found by a
// second search with the +60 prefix stripped.
func (c *Client) SearchCustomerByPhone(ctx context.Context, phone string) (*Customer, error) {
	found, err := c.searchCustomer(ctx, "phone:"+phone)
	if err != nil || found != nil {
		return found, err
	}
	if rest, ok := strings.CutPrefix(phone, "+60"); ok {
		return c.searchCustomer(ctx, "phone:"+rest)
	}
	return nil, nil
}

func (c *Client) searchCustomer(ctx context.Context, query string) (*Customer, error) {
	var resp customerSearchResponse
	path := "/customers/search.json?query=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if len(resp.Customers) == 0 {
		return nil, nil
	}
	return &resp.Customers[0], nil
}

// UpdateCustomerConsent sets the customer's email marketing consent state.
func (c *Client) UpdateCustomerConsent(ctx context.Context, customerID int64, state string) error {
	payload := map[string]any{
		"customer": map[string]any{
			"email_marketing_consent": map[string]string{"state": state},
		},
	}
	path := "/customers/" + strconv.FormatInt(customerID, 10) + ".json"
	return c.send(ctx, "PUT", path, payload, nil)
}
