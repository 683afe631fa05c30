package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/badixth/chip-in-backend/internal/chip"
	"github.com/badixth/chip-in-backend/internal/reconcile"
)

// gatewayWebhook consumes payment gateway callbacks. Irrelevant and
// duplicate events are acknowledged with 200 so the gateway stops retrying;
// only a genuine processing failure after a paid event returns non-2xx,
// which makes the gateway redeliver.
func (h *Handler) gatewayWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var ev chip.WebhookEvent
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&ev); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed webhook payload: " + err.Error()})
		return
	}

	outcome, err := h.events.Process(ctx, &ev)
	if err != nil {
		zctx.From(ctx).Error("Webhook processing failed",
			zap.String("event_id", ev.ID),
			zap.Error(err),
		)
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	switch outcome {
	case reconcile.OutcomeCreated:
		respondJSON(w, http.StatusOK, map[string]string{"status": "order created"})
	default:
		respondJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
	}
}

// platformWebhook acknowledges commerce platform order notifications. The
// relay only logs them; orders are already materialized by the gateway flow.
func (h *Handler) platformWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var note struct {
		ID              int64  `json:"id"`
		FinancialStatus string `json:"financial_status"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&note); err != nil {
		zctx.From(ctx).Warn("Unreadable platform webhook", zap.Error(err))
	} else {
		zctx.From(ctx).Info("Platform order notification",
			zap.Int64("order_id", note.ID),
			zap.String("financial_status", note.FinancialStatus),
		)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}
