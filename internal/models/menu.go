package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MenuItem is a restaurant dish. DiscountedPrice, when set, replaces Price
// in order line totals; the stored BasePrice on the order item stays the
// undiscounted price.
type MenuItem struct {
	ID              string   `gorm:"primaryKey" json:"id"`
	RestaurantID    string   `gorm:"index;not null" json:"restaurantId"`
	Name            string   `gorm:"not null" json:"name"`
	Description     string   `json:"description"`
	Price           float64  `gorm:"not null" json:"price"`
	DiscountedPrice *float64 `json:"discountedPrice,omitempty"`
	Available       bool     `gorm:"default:true" json:"available"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// EffectivePrice is the per-unit price after discount.
func (m *MenuItem) EffectivePrice() float64 {
	if m.DiscountedPrice != nil && *m.DiscountedPrice > 0 {
		return *m.DiscountedPrice
	}
	return m.Price
}
