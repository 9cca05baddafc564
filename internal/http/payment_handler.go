package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/service"
)

type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type ConfirmPaymentRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())
	orderID := chi.URLParam(r, "order_id")

	intent, err := h.payments.CreatePaymentIntent(r.Context(), orderID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, intent)
}

func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	var req ConfirmPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.TransactionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_transaction_id", "transaction_id is required")
		return
	}

	result, err := h.payments.ConfirmPayment(r.Context(), orderID, req.PaymentMethod, req.TransactionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !result.Success {
		respondJSON(w, http.StatusPaymentRequired, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// MockComplete settles an order without a provider round trip. Routed only
// outside production, and the service refuses it there as well.
func (h *PaymentHandler) MockComplete(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	result, err := h.payments.MockPaymentComplete(r.Context(), orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
