package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill status
const (
	BillPending   = "pending"
	BillPaid      = "paid"
	BillCancelled = "cancelled"
)

// Bill type
const (
	BillIndividual = "individual"
	BillCombined   = "combined"
	BillPartial    = "partial"
)

// Bill settles part or all of a session. Combined bills cover the whole
// session and carry no CustomerID.
type Bill struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SessionID  uint            `gorm:"not null;index" json:"sessionId"`
	CustomerID *uint           `gorm:"index" json:"customerId"`
	BillNumber string          `gorm:"type:varchar(60);not null;uniqueIndex" json:"billNumber"`
	Type       string          `gorm:"type:varchar(20);not null;default:'individual'" json:"type"`
	Status     string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Total      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	PaidAt     *time.Time      `json:"paidAt,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updatedAt"`
}

// IsCombined reports whether the bill covers the whole session.
func (b *Bill) IsCombined() bool {
	return b.Type == BillCombined
}
