package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500 with the details kept out of the body.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", "cart is empty")
	case errors.Is(err, service.ErrCartInvalid):
		respondError(w, http.StatusConflict, "cart_invalid", err.Error())
	case errors.Is(err, service.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", "cart item not found")
	case errors.Is(err, service.ErrProductUnavailable):
		respondError(w, http.StatusConflict, "product_unavailable", "product is not available")
	case errors.Is(err, service.ErrCouponNotFound):
		respondError(w, http.StatusNotFound, "coupon_not_found", "coupon code not found")
	case errors.Is(err, service.ErrCouponExpired):
		respondError(w, http.StatusUnprocessableEntity, "coupon_expired", "coupon is not currently valid")
	case errors.Is(err, service.ErrCouponMinOrder):
		respondError(w, http.StatusUnprocessableEntity, "coupon_min_order", "order does not meet the coupon minimum")
	case errors.Is(err, service.ErrCouponUsageLimit):
		respondError(w, http.StatusConflict, "coupon_usage_limit", "coupon usage limit reached")
	case errors.Is(err, service.ErrCouponNotApplicable):
		respondError(w, http.StatusUnprocessableEntity, "coupon_not_applicable", "coupon does not apply to this order")
	case errors.Is(err, service.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "checkout session not found")
	case errors.Is(err, service.ErrSessionExpired):
		respondError(w, http.StatusGone, "session_expired", "checkout session has expired")
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, service.ErrUnauthorizedOrderAccess):
		respondError(w, http.StatusForbidden, "forbidden", "order belongs to another user")
	case errors.Is(err, service.ErrInvalidPaymentState):
		respondError(w, http.StatusConflict, "invalid_payment_state", "payment is not in a state that allows this")
	case errors.Is(err, service.ErrAlreadyPaid):
		respondError(w, http.StatusConflict, "already_paid", "order is already paid")
	case errors.Is(err, service.ErrPaymentProcessing):
		respondError(w, http.StatusBadGateway, "payment_provider_error", "payment provider failed")
	case errors.Is(err, service.ErrMockPaymentDisabled):
		respondError(w, http.StatusForbidden, "mock_payment_disabled", "mock payment is disabled in this environment")
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, service.ErrCancellationWindowExpired):
		respondError(w, http.StatusUnprocessableEntity, "cancellation_window_expired", "cancellation window has passed")
	case errors.Is(err, service.ErrCancelReasonRequired):
		respondError(w, http.StatusBadRequest, "cancel_reason_required", "a cancellation reason is required")
	case errors.Is(err, service.ErrAdminRequired):
		respondError(w, http.StatusForbidden, "admin_required", "admin role required")
	default:
		log.Printf("unhandled service error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
