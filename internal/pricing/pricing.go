// Package pricing computes order totals. It is a pure function of its
// inputs: line items, an optional promo code, a delivery fee and a tax rate.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/NarakCODE/unique-brew-cafe-sub002/internal/domain"
)

type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	Discount    float64 `json:"discount"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"delivery_fee"`
	Total       float64 `json:"total"`
}

// LineTotal returns unit price times quantity rounded to cents.
func LineTotal(unitPrice float64, quantity int) float64 {
	total := decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
	f, _ := total.Round(2).Float64()
	return f
}

// Compute derives the monetary breakdown for a set of cart lines. Percentage
// coupons are capped at MaxDiscountAmount when set, fixed coupons never
// exceed the subtotal. Tax applies to the post-discount base. The total is
// floored at zero.
func Compute(items []domain.CartItem, promo *domain.PromoCode, deliveryFee, taxRate float64) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	discount := discountFor(subtotal, promo)

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(decimal.NewFromFloat(taxRate)).Round(2)

	fee := decimal.NewFromFloat(deliveryFee).Round(2)

	total := subtotal.Sub(discount).Add(tax).Add(fee)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:    toFloat(subtotal),
		Discount:    toFloat(discount),
		Tax:         toFloat(tax),
		DeliveryFee: toFloat(fee),
		Total:       toFloat(total),
	}
}

func discountFor(subtotal decimal.Decimal, promo *domain.PromoCode) decimal.Decimal {
	if promo == nil || subtotal.IsZero() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch promo.Type {
	case domain.DiscountPercentage:
		discount = subtotal.Mul(decimal.NewFromFloat(promo.Value)).Div(decimal.NewFromInt(100))
		if promo.MaxDiscountAmount > 0 {
			maxDiscount := decimal.NewFromFloat(promo.MaxDiscountAmount)
			if discount.GreaterThan(maxDiscount) {
				discount = maxDiscount
			}
		}
	case domain.DiscountFixed:
		discount = decimal.NewFromFloat(promo.Value)
	default:
		return decimal.Zero
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount.Round(2)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}
