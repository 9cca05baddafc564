package domain

import "time"

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusPickedUp       OrderStatus = "picked_up"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// validTransitions defines allowed status transitions. Cancellation is
// additionally reachable from every non-terminal state.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:          {OrderStatusPickedUp, OrderStatusCancelled},
	OrderStatusPickedUp:       {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:      {},
	OrderStatusCancelled:      {},
}

// CanTransitionTo reports whether the status machine permits from -> to.
func CanTransitionTo(from, to OrderStatus) bool {
	allowed, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// Actor is who drove a status change. It is recorded explicitly on every
// history row rather than inferred from the caller at read time.
type Actor string

const (
	ActorSystem   Actor = "system"
	ActorCustomer Actor = "customer"
	ActorStore    Actor = "store"
	ActorAdmin    Actor = "admin"
)

// Order is the durable financial record produced by a confirmed checkout
// session. It is never deleted.
type Order struct {
	ID                    string        `bson:"_id" json:"id"`
	OrderNumber           string        `bson:"order_number" json:"order_number"`
	UserID                string        `bson:"user_id" json:"user_id"`
	StoreID               string        `bson:"store_id" json:"store_id"`
	CartID                string        `bson:"cart_id" json:"cart_id"`
	SessionID             string        `bson:"session_id" json:"session_id"`
	Items                 []CartItem    `bson:"items" json:"items"`
	CouponCode            string        `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`
	Subtotal              float64       `bson:"subtotal" json:"subtotal"`
	Discount              float64       `bson:"discount" json:"discount"`
	Tax                   float64       `bson:"tax" json:"tax"`
	DeliveryFee           float64       `bson:"delivery_fee" json:"delivery_fee"`
	Total                 float64       `bson:"total" json:"total"`
	LoyaltyPointsUsed     int           `bson:"loyalty_points_used" json:"loyalty_points_used"`
	LoyaltyPointsEarned   int           `bson:"loyalty_points_earned" json:"loyalty_points_earned"`
	Status                OrderStatus   `bson:"status" json:"status"`
	PaymentStatus         PaymentStatus `bson:"payment_status" json:"payment_status"`
	PaymentMethod         string        `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	ProviderTransactionID string        `bson:"provider_transaction_id,omitempty" json:"provider_transaction_id,omitempty"`
	DeliveryAddressID     string        `bson:"delivery_address_id,omitempty" json:"delivery_address_id,omitempty"`
	Notes                 string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CancelledAt           *time.Time    `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CancelledBy           Actor         `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	CancelReason          string        `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	RefundAmount          float64       `bson:"refund_amount,omitempty" json:"refund_amount,omitempty"`
	RefundedAt            *time.Time    `bson:"refunded_at,omitempty" json:"refunded_at,omitempty"`
	CreatedAt             time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time     `bson:"updated_at" json:"updated_at"`
}

// OrderStatusHistory is one append-only row per status transition.
type OrderStatusHistory struct {
	ID        string      `bson:"_id" json:"id"`
	OrderID   string      `bson:"order_id" json:"order_id"`
	Status    OrderStatus `bson:"status" json:"status"`
	ChangedBy Actor       `bson:"changed_by" json:"changed_by"`
	Notes     string      `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}
