package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is the catalog row an order item snapshots its name and price
// from. The catalog itself is maintained elsewhere.
type MenuItem struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	RestaurantID uint            `gorm:"not null;index" json:"restaurantId"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Available    bool            `gorm:"not null" json:"available"`
	CreatedAt    time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updatedAt"`
}
