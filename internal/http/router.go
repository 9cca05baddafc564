// Package http is the REST surface of the ordering core: cart editing,
// checkout sessions, payment, and order lifecycle endpoints.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	JWTSecret      string
	EnableMockPay  bool
	RequestTimeout time.Duration
}

// NewRouter assembles the API. Everything under /api/v1 requires a valid
// token; staff endpoints additionally require the admin or store role.
func NewRouter(
	cfg RouterConfig,
	carts *CartHandler,
	checkout *CheckoutHandler,
	payments *PaymentHandler,
	orders *OrderHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{item_id}", carts.UpdateQuantity)
			r.Delete("/items/{item_id}", carts.RemoveItem)
			r.Delete("/", carts.ClearCart)
			r.Put("/address", carts.SetDeliveryAddress)
			r.Put("/notes", carts.SetNotes)
			r.Get("/validate", carts.ValidateCart)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/sessions", checkout.CreateSession)
			r.Post("/sessions/{session_id}/coupon", checkout.ApplyCoupon)
			r.Delete("/sessions/{session_id}/coupon", checkout.RemoveCoupon)
			r.Post("/sessions/{session_id}/confirm", checkout.Confirm)
			r.Get("/delivery-charges", checkout.DeliveryCharges)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Get("/{order_id}", orders.GetOrder)
			r.Get("/{order_id}/history", orders.History)
			r.Post("/{order_id}/cancel", orders.Cancel)

			r.Post("/{order_id}/payment-intent", payments.CreateIntent)
			r.Post("/{order_id}/payment/confirm", payments.Confirm)
			if cfg.EnableMockPay {
				r.Post("/{order_id}/payment/mock-complete", payments.MockComplete)
			}

			r.With(RequireRole("admin")).
				Put("/{order_id}/status", orders.UpdateStatus)
		})
	})

	return r
}
