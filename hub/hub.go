// Package hub delivers domain events to websocket clients registered to a
// restaurant or a single table.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/utils"
)

// Config tunes liveness, delivery and inbound limits.
type Config struct {
	PingInterval   time.Duration
	PongGrace      time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	BatchWindow    time.Duration
	MaxBatch       int
	InboundRate    float64
	InboundBurst   int
	MaxMessageSize int64
}

func DefaultConfig() Config {
	return Config{
		PingInterval:   25 * time.Second,
		PongGrace:      10 * time.Second,
		WriteTimeout:   5 * time.Second,
		SendBuffer:     64,
		BatchWindow:    50 * time.Millisecond,
		MaxBatch:       32,
		InboundRate:    10,
		InboundBurst:   20,
		MaxMessageSize: 4096,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongGrace <= 0 {
		c.PongGrace = d.PongGrace
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.BatchWindow <= 0 {
		c.BatchWindow = d.BatchWindow
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = d.MaxBatch
	}
	if c.InboundRate <= 0 {
		c.InboundRate = d.InboundRate
	}
	if c.InboundBurst <= 0 {
		c.InboundBurst = d.InboundBurst
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	return c
}

// CallWaiterFunc handles a call-waiter message from a table connection.
type CallWaiterFunc func(ctx context.Context, restaurantID, tableID uint, customerName, requestType string) error

// Stats are hub counters since start.
type Stats struct {
	Clients        int   `json:"clients"`
	Evicted        int64 `json:"evicted"`
	DroppedInbound int64 `json:"droppedInbound"`
}

// Hub keeps the registry of live clients and fans events out to them.
// Published events are queued per scope and flushed by Run.
type Hub struct {
	cfg Config

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool

	pendingMu sync.Mutex
	pending   map[events.Scope][]Envelope
	order     []events.Scope
	flushNow  chan struct{}

	callWaiter CallWaiterFunc

	evicted        atomic.Int64
	droppedInbound atomic.Int64
}

func New(cfg Config) *Hub {
	return &Hub{
		cfg:      cfg.withDefaults(),
		clients:  make(map[*Client]struct{}),
		pending:  make(map[events.Scope][]Envelope),
		flushNow: make(chan struct{}, 1),
	}
}

// OnCallWaiter sets the handler for call-waiter messages. Call before
// serving connections.
func (h *Hub) OnCallWaiter(fn CallWaiterFunc) {
	h.callWaiter = fn
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	return Stats{
		Clients:        n,
		Evicted:        h.evicted.Load(),
		DroppedInbound: h.droppedInbound.Load(),
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues an event for the next flush. It never blocks on clients.
func (h *Hub) Publish(e events.Event) {
	ts := e.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	env := Envelope{Type: e.Type, Payload: e.Payload, Timestamp: ts}

	h.pendingMu.Lock()
	queue, seen := h.pending[e.Scope]
	if !seen {
		h.order = append(h.order, e.Scope)
	}
	h.pending[e.Scope] = append(queue, env)
	full := len(queue)+1 >= h.cfg.MaxBatch
	h.pendingMu.Unlock()

	if full {
		select {
		case h.flushNow <- struct{}{}:
		default:
		}
	}
}

// Run flushes queued events every BatchWindow, or sooner when a scope fills
// a batch, until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.BatchWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.flush()
			return
		case <-ticker.C:
			h.flush()
		case <-h.flushNow:
			h.flush()
		}
	}
}

// flush sends every queued scope, oldest scope first. Events of one scope
// keep their publish order and go out in frames of at most MaxBatch.
func (h *Hub) flush() {
	h.pendingMu.Lock()
	pending, order := h.pending, h.order
	h.pending = make(map[events.Scope][]Envelope)
	h.order = nil
	h.pendingMu.Unlock()

	for _, scope := range order {
		queue := pending[scope]
		for start := 0; start < len(queue); start += h.cfg.MaxBatch {
			end := start + h.cfg.MaxBatch
			if end > len(queue) {
				end = len(queue)
			}
			frame, err := encodeFrame(queue[start:end])
			if err != nil {
				utils.ErrorLogger.WithFields(logrus.Fields{
					"scope": scope,
				}).Errorf("Failed to encode hub frame: %v", err)
				continue
			}
			h.deliver(scope, frame)
		}
	}
}

func encodeFrame(batch []Envelope) ([]byte, error) {
	if len(batch) == 1 {
		return json.Marshal(batch[0])
	}
	return json.Marshal(Envelope{Type: TypeBatch, Payload: batch, Timestamp: time.Now()})
}

func (h *Hub) deliver(scope events.Scope, frame []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.clients {
		if !c.matches(scope) {
			continue
		}
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.evict(c, "send queue full")
	}
}

// ServeConn runs a client until its connection ends. It blocks.
func (h *Hub) ServeConn(conn Conn) {
	c := newClient(h, conn)
	if !h.register(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.send(Envelope{
		Type:    TypeConnectionEstablished,
		Payload: map[string]string{"clientId": c.ID},
	})
	c.readPump()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	utils.InfoLogger.WithField("client_id", c.ID).Debug("Hub client connected")
	return true
}

func (h *Hub) unregister(c *Client) bool {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
	return ok
}

func (h *Hub) evict(c *Client, reason string) {
	if !h.unregister(c) {
		return
	}
	h.evicted.Add(1)
	restaurantID, tableID := c.scope()
	utils.InfoLogger.WithFields(logrus.Fields{
		"client_id":     c.ID,
		"restaurant_id": restaurantID,
		"table_id":      tableID,
		"reason":        reason,
	}).Warn("Hub client evicted")
}

// Shutdown tells every client the hub is going away and closes them. Later
// connections are refused.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.send(Envelope{Type: TypeDisconnected, Payload: errorPayload{Message: "server shutting down"}})
		c.close()
	}
	utils.InfoLogger.Infof("Hub shut down, %d clients disconnected", len(clients))
}
