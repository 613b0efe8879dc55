package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"orderId"`
	// Name and UnitPrice are snapshots of the menu item at order time.
	MenuItemID    uint            `gorm:"not null" json:"menuItemId"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unitPrice"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Customization string          `gorm:"type:text" json:"customization,omitempty"`
	Options       datatypes.JSON  `json:"options,omitempty"`
	CreatedAt     time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updatedAt"`
}
