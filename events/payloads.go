package events

import "time"

type TableStatusPayload struct {
	TableID  uint `json:"tableId"`
	Occupied bool `json:"occupied"`
}

type OrderStatusPayload struct {
	OrderID   uint   `json:"orderId"`
	SessionID uint   `json:"sessionId"`
	Status    string `json:"status"`
}

// SessionTotalsPayload carries amounts as two-decimal strings.
type SessionTotalsPayload struct {
	SessionID   uint   `json:"sessionId"`
	Status      string `json:"status"`
	TotalAmount string `json:"totalAmount"`
	PaidAmount  string `json:"paidAmount"`
}

type WaiterRequestPayload struct {
	TableID      uint      `json:"tableId"`
	CustomerName string    `json:"customerName"`
	RequestType  string    `json:"requestType,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type SessionStatusPayload struct {
	SessionID   uint       `json:"sessionId"`
	TableID     uint       `json:"tableId"`
	Status      string     `json:"status"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	CloseReason string     `json:"closeReason,omitempty"`
}

// OrderPatchPayload replaces a client's copy of an edited order.
type OrderPatchPayload struct {
	OrderID   uint        `json:"orderId"`
	SessionID uint        `json:"sessionId"`
	Status    string      `json:"status"`
	Total     string      `json:"total"`
	Items     interface{} `json:"items"`
}
