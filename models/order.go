package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order status
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderPreparing = "preparing"
	OrderServed    = "served"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SessionID     uint            `gorm:"not null;index" json:"sessionId"`
	CustomerID    uint            `gorm:"not null;index" json:"customerId"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	RestaurantID  uint            `gorm:"not null;uniqueIndex:idx_restaurant_display_number" json:"restaurantId"`
	TableID       uint            `gorm:"not null;index" json:"tableId"`
	OrderNumber   string          `gorm:"type:varchar(40);not null;uniqueIndex" json:"orderNumber"`
	DisplayNumber int             `gorm:"not null;uniqueIndex:idx_restaurant_display_number" json:"displayNumber"`
	Status        string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	OrderItems    []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt     time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updatedAt"`
}

// DisplayLabel is the short number shown on kitchen and floor screens.
func (o *Order) DisplayLabel() string {
	return fmt.Sprintf("#%03d", o.DisplayNumber)
}
