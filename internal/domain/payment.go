package domain

import "time"

// PaymentIntent is an ephemeral pre-confirmation record. Once payment is
// confirmed the Order's payment fields are the source of truth.
type PaymentIntent struct {
	ID            string    `bson:"_id" json:"id"`
	OrderID       string    `bson:"order_id" json:"order_id"`
	UserID        string    `bson:"user_id" json:"user_id"`
	Amount        float64   `bson:"amount" json:"amount"`
	Currency      string    `bson:"currency" json:"currency"`
	PaymentMethod string    `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	ProviderRef   string    `bson:"provider_ref" json:"provider_ref"`
	Status        string    `bson:"status" json:"status"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
