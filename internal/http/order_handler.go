package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type CancelOrderRequestDTO struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	order, err := h.orders.GetOrder(r.Context(), orderID, getUserID(r.Context()), getRole(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListUserOrders(r.Context(), getUserID(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	history, err := h.orders.History(r.Context(), orderID, getUserID(r.Context()), getRole(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// Cancel handles customer-initiated cancellation. Staff cancel through the
// status endpoint instead.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	var req CancelOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.Cancel(r.Context(), orderID, domain.ActorCustomer, getUserID(r.Context()), req.Reason)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "invalid_status", "status is required")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status), domain.ActorAdmin, req.Notes)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
