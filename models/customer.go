package models

import (
	"time"
)

// Customer payment status
const (
	CustomerPaymentPending = "pending"
	CustomerPaymentPaid    = "paid"
)

type Customer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SessionID      uint      `gorm:"not null;index" json:"sessionId"`
	Name           string    `gorm:"type:varchar(100);not null" json:"name"`
	Email          *string   `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone          *string   `gorm:"type:varchar(50)" json:"phone,omitempty"`
	PaymentStatus  string    `gorm:"type:varchar(20);not null;default:'pending'" json:"paymentStatus"`
	IsMainCustomer bool      `gorm:"not null;default:false" json:"isMainCustomer"`
	CreatedAt      time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"not null" json:"updatedAt"`
}
