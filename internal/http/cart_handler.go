package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/service"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type AddItemRequestDTO struct {
	StoreID       string               `json:"store_id"`
	ProductID     string               `json:"product_id"`
	Quantity      int                  `json:"quantity"`
	Customization domain.Customization `json:"customization"`
	AddOnIDs      []string             `json:"add_on_ids"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type SetAddressRequestDTO struct {
	AddressID string `json:"address_id"`
}

type SetNotesRequestDTO struct {
	Notes string `json:"notes"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())
	storeID := r.URL.Query().Get("store_id")

	cart, err := h.carts.GetOrCreateActiveCart(r.Context(), userID, storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, err := h.carts.AddItem(r.Context(), userID, req.StoreID, req.ProductID, req.Quantity, req.Customization, req.AddOnIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())
	itemID := chi.URLParam(r, "item_id")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, err := h.carts.UpdateItemQuantity(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())
	itemID := chi.URLParam(r, "item_id")

	cart, err := h.carts.RemoveItem(r.Context(), userID, itemID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	cart, err := h.carts.Clear(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) SetDeliveryAddress(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	var req SetAddressRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.AddressID == "" {
		respondError(w, http.StatusBadRequest, "invalid_address_id", "address_id is required")
		return
	}

	cart, err := h.carts.SetDeliveryAddress(r.Context(), userID, req.AddressID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) SetNotes(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	var req SetNotesRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	cart, err := h.carts.SetNotes(r.Context(), userID, req.Notes)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// ValidateCart reports catalog drift on the active cart without mutating it.
func (h *CartHandler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())
	storeID := r.URL.Query().Get("store_id")

	cart, err := h.carts.GetOrCreateActiveCart(r.Context(), userID, storeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	violations, err := h.carts.Validate(r.Context(), cart)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":      len(violations) == 0,
		"violations": violations,
	})
}
