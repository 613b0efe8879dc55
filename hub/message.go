package hub

import (
	"encoding/json"
	"time"
)

// Message types owned by the hub itself
const (
	TypeConnectionEstablished = "connection-established"
	TypeDisconnected          = "disconnected"
	TypeRegistered            = "registered"
	TypeBatch                 = "batch"
	TypePong                  = "pong"
	TypeError                 = "error"
)

// Inbound message types
const (
	TypeRegisterRestaurant = "register-restaurant"
	TypeRegisterTable      = "register-table"
	TypeCallWaiter         = "call-waiter"
	TypePing               = "ping"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type registerPayload struct {
	RestaurantID uint `json:"restaurantId"`
	TableID      uint `json:"tableId"`
}

type callWaiterPayload struct {
	CustomerName string `json:"customerName"`
	RequestType  string `json:"requestType"`
}

type errorPayload struct {
	Message string `json:"message"`
}
