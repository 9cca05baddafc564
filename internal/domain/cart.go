package domain

import (
	"sort"
	"strings"
	"time"
)

type CartStatus string

const (
	CartStatusActive     CartStatus = "active"
	CartStatusCheckedOut CartStatus = "checked_out"
	CartStatusAbandoned  CartStatus = "abandoned"
)

// Customization captures the drink options a customer picked for one line.
type Customization struct {
	Size        string `bson:"size,omitempty" json:"size,omitempty"`
	SugarLevel  string `bson:"sugar_level,omitempty" json:"sugar_level,omitempty"`
	IceLevel    string `bson:"ice_level,omitempty" json:"ice_level,omitempty"`
	CoffeeLevel string `bson:"coffee_level,omitempty" json:"coffee_level,omitempty"`
}

type CartItem struct {
	ID            string        `bson:"id" json:"id"`
	ProductID     string        `bson:"product_id" json:"product_id"`
	ProductName   string        `bson:"product_name" json:"product_name"`
	CategoryID    string        `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Quantity      int           `bson:"quantity" json:"quantity"`
	Customization Customization `bson:"customization,omitempty" json:"customization,omitempty"`
	AddOnIDs      []string      `bson:"add_on_ids,omitempty" json:"add_on_ids,omitempty"`
	UnitPrice     float64       `bson:"unit_price" json:"unit_price"`
	TotalPrice    float64       `bson:"total_price" json:"total_price"`
	AddedAt       time.Time     `bson:"added_at" json:"added_at"`
}

// LineKey identifies a mergeable cart line: same product with the same
// customization and add-ons is one line, anything else is a new one.
func (i CartItem) LineKey() string {
	addOns := append([]string(nil), i.AddOnIDs...)
	sort.Strings(addOns)
	parts := []string{
		i.ProductID,
		i.Customization.Size,
		i.Customization.SugarLevel,
		i.Customization.IceLevel,
		i.Customization.CoffeeLevel,
	}
	parts = append(parts, addOns...)
	return strings.Join(parts, "|")
}

type Cart struct {
	ID                string     `bson:"_id" json:"id"`
	UserID            string     `bson:"user_id" json:"user_id"`
	StoreID           string     `bson:"store_id" json:"store_id"`
	Items             []CartItem `bson:"items" json:"items"`
	Status            CartStatus `bson:"status" json:"status"`
	DeliveryAddressID string     `bson:"delivery_address_id,omitempty" json:"delivery_address_id,omitempty"`
	Notes             string     `bson:"notes,omitempty" json:"notes,omitempty"`
	Subtotal          float64    `bson:"subtotal" json:"subtotal"`
	Discount          float64    `bson:"discount" json:"discount"`
	Tax               float64    `bson:"tax" json:"tax"`
	DeliveryFee       float64    `bson:"delivery_fee" json:"delivery_fee"`
	Total             float64    `bson:"total" json:"total"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
	AbandonedAt       *time.Time `bson:"abandoned_at,omitempty" json:"abandoned_at,omitempty"`
}

// FindItem returns the index of the line matching key, or -1.
func (c *Cart) FindItem(key string) int {
	for i := range c.Items {
		if c.Items[i].LineKey() == key {
			return i
		}
	}
	return -1
}

// FindItemByID returns the index of the line with the given item id, or -1.
func (c *Cart) FindItemByID(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}
