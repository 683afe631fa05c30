package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/badixth/chip-in-backend/internal/checkout"
)

// maxBodySize bounds request bodies; checkout payloads are small.
const maxBodySize = 1 << 20

// createSession validates the checkout submission and opens a hosted payment
// session. The raw body is forwarded verbatim as session metadata so the
// webhook sees exactly what the storefront sent.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "reading request body"})
		return
	}
	if !jx.Valid(raw) {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	var req checkout.CheckoutRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed checkout payload: " + err.Error()})
		return
	}

	session, err := h.sessions.CreateSession(ctx, &req, raw)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"checkout_url": session.CheckoutURL,
	})
}
