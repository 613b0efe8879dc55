package models

import (
	"time"

	"gorm.io/datatypes"
)

// Waiter request types
const (
	RequestAssistance = "assistance"
	RequestBill       = "bill"
	RequestWater      = "water"
)

// Notification records a diner calling for staff at a table.
type Notification struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	RestaurantID uint              `gorm:"not null;index" json:"restaurantId"`
	TableID      uint              `gorm:"not null;index" json:"tableId"`
	SessionID    *uint             `gorm:"index" json:"sessionId,omitempty"`
	CustomerName string            `gorm:"type:varchar(100)" json:"customerName"`
	RequestType  string            `gorm:"type:varchar(30);not null;default:'assistance'" json:"requestType"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null" json:"createdAt"`
}
