package domain

import "time"

type SessionStatus string

const (
	SessionStatusCreated    SessionStatus = "created"
	SessionStatusConfirming SessionStatus = "confirming"
)

// CheckoutSession is a short-lived snapshot of a cart taken at checkout
// initiation. Coupon and delivery changes are staged here; the source cart is
// untouched until the session is confirmed.
type CheckoutSession struct {
	ID                string        `bson:"_id" json:"id"`
	UserID            string        `bson:"user_id" json:"user_id"`
	StoreID           string        `bson:"store_id" json:"store_id"`
	CartID            string        `bson:"cart_id" json:"cart_id"`
	Items             []CartItem    `bson:"items" json:"items"`
	DeliveryAddressID string        `bson:"delivery_address_id,omitempty" json:"delivery_address_id,omitempty"`
	Notes             string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CouponCode        string        `bson:"coupon_code,omitempty" json:"coupon_code,omitempty"`
	Subtotal          float64       `bson:"subtotal" json:"subtotal"`
	Discount          float64       `bson:"discount" json:"discount"`
	Tax               float64       `bson:"tax" json:"tax"`
	DeliveryFee       float64       `bson:"delivery_fee" json:"delivery_fee"`
	Total             float64       `bson:"total" json:"total"`
	Status            SessionStatus `bson:"status" json:"status"`
	ExpiresAt         time.Time     `bson:"expires_at" json:"expires_at"`
	CreatedAt         time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at" json:"updated_at"`
}

func (s *CheckoutSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
