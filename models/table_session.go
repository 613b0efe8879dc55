package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session status
const (
	SessionWaiting   = "waiting"
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

// OpenSessionStatuses are the statuses in which a session still holds its table.
var OpenSessionStatuses = []string{SessionWaiting, SessionActive}

// TableSession is one continuous seating at a table. TotalAmount and
// PaidAmount are derived by the session ledger and cached on the row.
type TableSession struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	TableID         uint            `gorm:"not null;index" json:"tableId"`
	Table           *Table          `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table,omitempty"`
	RestaurantID    uint            `gorm:"not null;index" json:"restaurantId"`
	PartySize       int             `gorm:"not null;default:1" json:"partySize"`
	Status          string          `gorm:"type:varchar(20);not null;default:'waiting';index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"totalAmount"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"paidAmount"`
	StartTime       time.Time       `gorm:"not null;index" json:"startTime"`
	EndTime         *time.Time      `json:"endTime,omitempty"`
	BillRequested   bool            `gorm:"not null;default:false" json:"billRequested"`
	BillRequestedAt *time.Time      `json:"billRequestedAt,omitempty"`
	CloseReason     string          `gorm:"type:varchar(255)" json:"closeReason,omitempty"`
	Customers       []Customer      `gorm:"foreignKey:SessionID" json:"customers,omitempty"`
	Orders          []Order         `gorm:"foreignKey:SessionID" json:"orders,omitempty"`
	Bills           []Bill          `gorm:"foreignKey:SessionID" json:"bills,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updatedAt"`
}

// IsOpen reports whether the session still accepts customers, orders and bills.
func (s *TableSession) IsOpen() bool {
	return s.Status == SessionWaiting || s.Status == SessionActive
}
