package chip

import "encoding/json"

// ClientInfo carries the payer's contact and shipping details. The same shape is
// sent on purchase creation and echoed back, gateway-confirmed, on webhook
// events. State transports the email-marketing consent across the async gap.
type ClientInfo struct {
	Email                 string `json:"email"`
	Phone                 string `json:"phone"`
	FullName              string `json:"full_name"`
	ShippingStreetAddress string `json:"shipping_street_address"`
	ShippingCountry       string `json:"shipping_country"`
	ShippingCity          string `json:"shipping_city"`
	ShippingZipCode       string `json:"shipping_zip_code"`
	ShippingState         string `json:"shipping_state"`
	State                 string `json:"state"`
}

// Product is one catalog line in the purchase. Prices are in minor currency
// units and carry the platform-native values; the discount is expressed only
// through the purchase-level total override.
type Product struct {
	ProductID         int64   `json:"product_id"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Quantity          float64 `json:"quantity"`
	Category          int64   `json:"category"`
	TotalDiscount     float64 `json:"total_discount"`
	FinalLinePrice    float64 `json:"final_line_price"`
	OriginalLinePrice float64 `json:"original_line_price"`
	RequiresShipping  bool    `json:"requires_shipping"`
}

// Metadata is the opaque blob the gateway stores with the session and echoes
// back on the paid webhook. It is the sole channel carrying the original
// checkout request across the asynchronous gap; no server-side session store
// exists.
type Metadata struct {
	ShopifyPayload json.RawMessage `json:"shopify_payload"`
}

// PurchaseDetails is the priced content of the session.
type PurchaseDetails struct {
	Products      []Product `json:"products"`
	TotalOverride float64   `json:"total_override"`
	Currency      string    `json:"currency"`
	Metadata      Metadata  `json:"metadata"`
}

// PurchaseRequest is the session-creation payload.
type PurchaseRequest struct {
	Client          ClientInfo      `json:"client"`
	Purchase        PurchaseDetails `json:"purchase"`
	SuccessRedirect string          `json:"success_redirect"`
	Notes           string          `json:"notes"`
	BrandID         string          `json:"brand_id"`
}

// Purchase is the created session.
type Purchase struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkout_url"`
}

// WebhookEvent is a gateway callback. Only status "paid" triggers order
// materialization; identity fields come from Client (gateway-confirmed),
// while items, coupon and attributes come from the embedded metadata.
type WebhookEvent struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Client   ClientInfo    `json:"client"`
	Purchase EventPurchase `json:"purchase"`
}

// EventPurchase is the purchase section of a webhook event.
type EventPurchase struct {
	Metadata Metadata `json:"metadata"`
}

// StatusPaid is the only event status with side effects.
const StatusPaid = "paid"

// WebhookRegistration subscribes a callback URL to gateway events.
type WebhookRegistration struct {
	Title     string   `json:"title"`
	PublicKey string   `json:"public_key"`
	Events    []string `json:"events"`
	Callback  string   `json:"callback"`
}

// EventPurchasePaid is the gateway event emitted when a purchase completes.
const EventPurchasePaid = "purchase.paid"
