// Package handler exposes the relay's HTTP surface: session creation, the
// gateway webhook, the platform webhook ack and coupon validation.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/badixth/chip-in-backend/internal/checkout"
	"github.com/badixth/chip-in-backend/internal/chip"
	"github.com/badixth/chip-in-backend/internal/coupon"
	"github.com/badixth/chip-in-backend/internal/reconcile"
	"github.com/badixth/chip-in-backend/internal/shopify"
)

// SessionInitiator opens a hosted payment session for a checkout request.
type SessionInitiator interface {
	CreateSession(ctx context.Context, req *checkout.CheckoutRequest, raw json.RawMessage) (*checkout.Session, error)
}

// EventProcessor runs gateway webhook events through the reconciler.
type EventProcessor interface {
	Process(ctx context.Context, ev *chip.WebhookEvent) (reconcile.Outcome, error)
}

// Handler wires the HTTP endpoints to the checkout and reconciliation flows.
type Handler struct {
	sessions SessionInitiator
	events   EventProcessor
	coupons  coupon.Validator
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(sessions SessionInitiator, events EventProcessor, coupons coupon.Validator) *Handler {
	return &Handler{
		sessions: sessions,
		events:   events,
		coupons:  coupons,
	}
}

// Routes registers all endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /create-chip-in-session", h.createSession)
	mux.HandleFunc("POST /chipin-webhook", h.gatewayWebhook)
	mux.HandleFunc("POST /shopify-webhook", h.platformWebhook)
	mux.HandleFunc("POST /validate-coupon", h.validateCoupon)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps the error taxonomy to HTTP statuses: request validation
// failures and upstream rejections are the client's to see (400, with the
// upstream body for diagnosis); everything else is a 500.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	lg := zctx.From(ctx)

	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
		return
	}

	var chipErr *chip.APIError
	if errors.As(err, &chipErr) {
		lg.Warn("Gateway rejected request",
			zap.Int("status", chipErr.Status),
			zap.ByteString("body", chipErr.Body),
		)
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var shopErr *shopify.APIError
	if errors.As(err, &shopErr) {
		lg.Warn("Platform rejected request",
			zap.Int("status", shopErr.Status),
			zap.ByteString("body", shopErr.Body),
		)
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	lg.Error("Request failed", zap.Error(err))
	respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
