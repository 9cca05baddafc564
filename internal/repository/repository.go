package repository

import (
	"context"
	"errors"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

var (
	ErrCartNotFound        = errors.New("cart not found")
	ErrDuplicateActiveCart = errors.New("user already has an active cart")
	ErrSessionNotFound     = errors.New("checkout session not found")
	ErrPromoNotFound       = errors.New("promo code not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrUsageLimitExceeded  = errors.New("promo code usage limit exceeded")
)

type CartRepository interface {
	GetActiveCart(ctx context.Context, userID string) (*domain.Cart, error)
	// CreateCart inserts a new active cart. A second active cart for the same
	// user fails with ErrDuplicateActiveCart via the partial unique index.
	CreateCart(ctx context.Context, cart *domain.Cart) error
	// UpdateCart replaces the whole active cart document in one write.
	UpdateCart(ctx context.Context, cart *domain.Cart) error
	// CloseCart moves an active cart to a terminal status. It is a no-op
	// (no error) when the cart is already closed, so saga repair can re-run it.
	CloseCart(ctx context.Context, cartID string, status domain.CartStatus) error
}

type CheckoutSessionRepository interface {
	CreateSession(ctx context.Context, session *domain.CheckoutSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	UpdateSession(ctx context.Context, session *domain.CheckoutSession) error
	// ClaimSession atomically flips a session from created to confirming and
	// returns it. A session that is gone or already claimed yields
	// ErrSessionNotFound, which is what makes double-confirm safe.
	ClaimSession(ctx context.Context, sessionID string) (*domain.CheckoutSession, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type PromoRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	CreatePromoCode(ctx context.Context, promo *domain.PromoCode) error
	CountUsages(ctx context.Context, code string) (int64, error)
	CountUserUsages(ctx context.Context, code, userID string) (int64, error)
	// ReserveUsage atomically takes one global and one per-user usage slot and
	// appends the audit row. A full counter yields ErrUsageLimitExceeded with
	// nothing reserved.
	ReserveUsage(ctx context.Context, usage *domain.PromoCodeUsage, usageLimit, perUserLimit int) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	// MarkPaymentProcessing is the pending -> processing compare-and-swap that
	// guards against concurrent payment intents. Returns false when the order
	// was not in pending.
	MarkPaymentProcessing(ctx context.Context, orderID string) (bool, error)
	// CompletePayment flips payment to completed and the order to confirmed in
	// one write, only while payment is still pending/processing/failed.
	CompletePayment(ctx context.Context, orderID, transactionID, method string) (bool, error)
	FailPayment(ctx context.Context, orderID string) error
	// TransitionStatus performs a status CAS with optional extra fields.
	// Returns false when the order was no longer in the from status.
	TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, set map[string]interface{}) (bool, error)
	AppendHistory(ctx context.Context, h *domain.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID string) ([]*domain.OrderStatusHistory, error)
	CreatePaymentIntent(ctx context.Context, intent *domain.PaymentIntent) error
}
