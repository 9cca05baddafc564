package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type ApplyCouponRequestDTO struct {
	Code string `json:"code"`
}

type ConfirmCheckoutRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	session, err := h.checkout.CreateCheckoutSession(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req ApplyCouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "invalid_code", "code is required")
		return
	}

	session, err := h.checkout.ApplyCoupon(r.Context(), sessionID, req.Code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	session, err := h.checkout.RemoveCoupon(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (h *CheckoutHandler) DeliveryCharges(w http.ResponseWriter, r *http.Request) {
	addressID := r.URL.Query().Get("address_id")
	if addressID == "" {
		respondError(w, http.StatusBadRequest, "invalid_address_id", "address_id is required")
		return
	}

	fee, err := h.checkout.CalculateDeliveryCharges(r.Context(), addressID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]float64{"fee": fee})
}

func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var req ConfirmCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.PaymentMethod == "" {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "payment_method is required")
		return
	}

	order, err := h.checkout.ConfirmCheckout(r.Context(), sessionID, req.PaymentMethod)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}
