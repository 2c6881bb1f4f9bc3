package http

import (
	"io"
	"net/http"

	"cycle-backend/internal/domain"
	"cycle-backend/internal/service"
)

// Provider callbacks are small; anything larger is not a genuine notification.
const maxWebhookBytes = 64 << 10

type paymentHandler struct {
	payments service.PaymentService
	earnings service.EarningsService
}

type initiatePaymentRequest struct {
	RentalID string               `json:"rental_id" validate:"required,uuid"`
	Method   domain.PaymentMethod `json:"method" validate:"required"`
}

func (h *paymentHandler) initiate(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req initiatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rentalID, err := optionalUUID(req.RentalID, "rental_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.payments.InitiatePayment(r.Context(), actor.UserID, *rentalID, req.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *paymentHandler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, r, domain.Validation("invalid_body", "could not read webhook body"))
		return
	}
	if err := h.payments.HandleStripeWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *paymentHandler) mpesaCallback(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, r, domain.Validation("invalid_body", "could not read callback body"))
		return
	}
	if err := h.payments.HandleMpesaCallback(r.Context(), payload); err != nil {
		writeError(w, r, err)
		return
	}
	// Daraja expects this acknowledgement shape
	writeRaw(w, http.StatusOK, map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"})
}

func (h *paymentHandler) listEarnings(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, size := pagination(r)
	items, total, err := h.earnings.ListEarnings(r.Context(), actor.UserID, p, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page{Items: items, Page: p, PageSize: size, TotalCount: total})
}

func (h *paymentHandler) earningsSummary(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.earnings.Summary(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
