// Package reconcile drives the payment-to-order state machine: it consumes
// gateway webhook events and turns each paid session into exactly one
// platform order.
package reconcile

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/badixth/chip-in-backend/internal/checkout"
	"github.com/badixth/chip-in-backend/internal/chip"
	"github.com/badixth/chip-in-backend/internal/order"
)

// Outcome is the terminal state of a processed webhook event.
type Outcome string

const (
	// OutcomeIgnored means the event's status carries no side effects.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate means the event was already handled or is in flight.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeCreated means an order was materialized.
	OutcomeCreated Outcome = "created"
	// OutcomeFailed means materialization failed; the event may be retried.
	OutcomeFailed Outcome = "failed"
)

// Materializer builds the platform order for a paid session.
type Materializer interface {
	CreateOrder(ctx context.Context, req order.Request) (*order.Result, error)
}

// Reconciler processes gateway webhook events idempotently.
type Reconciler struct {
	store  Store
	orders Materializer
	events metric.Int64Counter
}

func NewReconciler(store Store, orders Materializer, meter metric.Meter) (*Reconciler, error) {
	events, err := meter.Int64Counter("chipin.webhook.events",
		metric.WithDescription("Processed payment webhook events by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return &Reconciler{
		store:  store,
		orders: orders,
		events: events,
	}, nil
}

func (r *Reconciler) record(ctx context.Context, outcome Outcome) {
	r.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
	))
}

// Process runs one webhook event through the state machine.
//
// Non-paid statuses are acknowledged without side effects. Paid events claim
// the event id before any write; a claim already completed or in flight is a
// duplicate delivery and is acknowledged so the gateway stops retrying. A
// failed materialization releases the claim, letting the next redelivery of
// the same event try again.
func (r *Reconciler) Process(ctx context.Context, ev *chip.WebhookEvent) (Outcome, error) {
	lg := zctx.From(ctx).With(zap.String("event_id", ev.ID))

	if ev.Status != chip.StatusPaid {
		lg.Info("Ignoring webhook event", zap.String("status", ev.Status))
		r.record(ctx, OutcomeIgnored)
		return OutcomeIgnored, nil
	}

	claimed := ev.ID != ""
	if claimed {
		state, err := r.store.Reserve(ctx, ev.ID)
		if err != nil {
			return OutcomeFailed, errors.Wrap(err, "reserve event")
		}
		if state != ReserveNew {
			lg.Info("Duplicate webhook delivery acknowledged")
			r.record(ctx, OutcomeDuplicate)
			return OutcomeDuplicate, nil
		}
	} else {
		lg.Warn("Webhook event has no id, processing without dedup")
	}

	req, err := r.orderRequest(ev)
	if err != nil {
		r.release(ctx, claimed, ev.ID)
		r.record(ctx, OutcomeFailed)
		return OutcomeFailed, err
	}

	res, err := r.orders.CreateOrder(ctx, *req)
	if err != nil {
		r.release(ctx, claimed, ev.ID)
		r.record(ctx, OutcomeFailed)
		return OutcomeFailed, errors.Wrap(err, "materialize order")
	}

	if claimed {
		if err := r.store.Complete(ctx, ev.ID); err != nil {
			// The order exists; a failed completion only risks a duplicate
			// on redelivery, which the platform-side note makes auditable.
			lg.Warn("Completing event claim failed", zap.Error(err))
		}
	}
	lg.Info("Webhook event reconciled", zap.Int64("order_id", res.OrderID))
	r.record(ctx, OutcomeCreated)
	return OutcomeCreated, nil
}

// orderRequest rebuilds the order inputs from the event: identity from the
// gateway-confirmed client section, cart and attributes from the metadata
// relayed through the session.
func (r *Reconciler) orderRequest(ev *chip.WebhookEvent) (*order.Request, error) {
	payload := ev.Purchase.Metadata.ShopifyPayload
	if len(payload) == 0 {
		return nil, errors.New("event metadata has no checkout payload")
	}

	var req checkout.CheckoutRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, errors.Wrap(err, "decode checkout payload")
	}

	return &order.Request{
		Name:  ev.Client.FullName,
		Email: ev.Client.Email,
		Phone: ev.Client.Phone,
		Address: checkout.Address{
			Address1: ev.Client.ShippingStreetAddress,
			City:     ev.Client.ShippingCity,
			Province: ev.Client.ShippingState,
			Zip:      ev.Client.ShippingZipCode,
			Country:  ev.Client.ShippingCountry,
		},
		Items:           req.Items,
		Attributes:      req.Attributes,
		CouponCode:      req.CouponCode,
		ConsentState:    ev.Client.State,
		FinancialStatus: "paid",
	}, nil
}

func (r *Reconciler) release(ctx context.Context, claimed bool, key string) {
	if !claimed {
		return
	}
	if err := r.store.Release(ctx, key); err != nil {
		zctx.From(ctx).Warn("Releasing event claim failed",
			zap.String("event_id", key),
			zap.Error(err),
		)
	}
}
