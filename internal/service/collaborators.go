package service

import (
	"context"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

// Product is the slice of the catalog the core needs: availability and the
// price snapshotted into cart lines at add time.
type Product struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CategoryID string  `json:"category_id"`
	Price      float64 `json:"price"`
	Available  bool    `json:"available"`
}

// ProductCatalog is the external catalog collaborator. Prices are only read
// at add time and during explicit validation, never trusted in between.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
}

// DeliveryCalculator maps an address id to a delivery fee.
type DeliveryCalculator interface {
	Fee(ctx context.Context, addressID string) (float64, error)
}

// PaymentProvider is the opaque verification call to the payment gateway.
// verified=false with a reason is a decline; an error is a transport-level
// failure the coordinator maps to payment_status=failed.
type PaymentProvider interface {
	Verify(ctx context.Context, orderID, paymentMethod, providerTransactionID string) (verified bool, reason string, err error)
}

// Notifier receives order lifecycle events. Callers never wait on delivery.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *domain.Order) error
	OrderStatusChanged(ctx context.Context, order *domain.Order) error
}
