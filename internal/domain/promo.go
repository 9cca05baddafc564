package domain

import (
	"strings"
	"time"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// NormalizeCode folds a user-entered promo code into its canonical form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type PromoCode struct {
	ID                string       `bson:"_id" json:"id"`
	Code              string       `bson:"code" json:"code"`
	Type              DiscountType `bson:"type" json:"type"`
	Value             float64      `bson:"value" json:"value"`
	MinOrderAmount    float64      `bson:"min_order_amount,omitempty" json:"min_order_amount,omitempty"`
	MaxDiscountAmount float64      `bson:"max_discount_amount,omitempty" json:"max_discount_amount,omitempty"`
	UsageLimit        int          `bson:"usage_limit,omitempty" json:"usage_limit,omitempty"`
	PerUserLimit      int          `bson:"per_user_limit,omitempty" json:"per_user_limit,omitempty"`
	ValidFrom         time.Time    `bson:"valid_from" json:"valid_from"`
	ValidUntil        time.Time    `bson:"valid_until" json:"valid_until"`
	IsActive          bool         `bson:"is_active" json:"is_active"`
	StoreIDs          []string     `bson:"store_ids,omitempty" json:"store_ids,omitempty"`
	CategoryIDs       []string     `bson:"category_ids,omitempty" json:"category_ids,omitempty"`
	CreatedAt         time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `bson:"updated_at" json:"updated_at"`
}

// CurrentlyValid reports whether the code is active and now falls inside
// [ValidFrom, ValidUntil).
func (p *PromoCode) CurrentlyValid(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if now.Before(p.ValidFrom) {
		return false
	}
	return now.Before(p.ValidUntil)
}

// PromoCodeUsage is one row of the usage ledger: a single redemption of a
// promo code by a user on an order. Limits are enforced by recounting these
// rows, never by a shared counter.
type PromoCodeUsage struct {
	ID             string    `bson:"_id" json:"id"`
	PromoCodeID    string    `bson:"promo_code_id" json:"promo_code_id"`
	Code           string    `bson:"code" json:"code"`
	UserID         string    `bson:"user_id" json:"user_id"`
	OrderID        string    `bson:"order_id" json:"order_id"`
	DiscountAmount float64   `bson:"discount_amount" json:"discount_amount"`
	UsedAt         time.Time `bson:"used_at" json:"used_at"`
}
