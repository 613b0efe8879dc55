package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/utils"
	"golang.org/x/time/rate"
)

const callWaiterTimeout = 5 * time.Second

// Conn is the part of *websocket.Conn the hub uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one live connection. Only writePump writes to conn.
type Client struct {
	ID string

	hub     *Hub
	conn    Conn
	queue   chan []byte
	limiter *rate.Limiter
	dropped atomic.Int64

	mu           sync.RWMutex
	restaurantID uint
	tableID      uint

	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(h *Hub, conn Conn) *Client {
	return &Client{
		ID:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		queue:   make(chan []byte, h.cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.InboundRate), h.cfg.InboundBurst),
		closed:  make(chan struct{}),
	}
}

func (c *Client) scope() (restaurantID, tableID uint) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.restaurantID, c.tableID
}

func (c *Client) setScope(restaurantID, tableID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restaurantID, c.tableID = restaurantID, tableID
}

// matches reports whether an event for scope should reach this client.
// Restaurant connections get everything of their restaurant; table
// connections get restaurant-wide events and their own table's events.
func (c *Client) matches(scope events.Scope) bool {
	restaurantID, tableID := c.scope()
	if restaurantID == 0 || restaurantID != scope.RestaurantID {
		return false
	}
	if !scope.IsTable() || tableID == 0 {
		return true
	}
	return tableID == scope.TableID
}

// enqueue hands a frame to the write pump without blocking. It fails when
// the queue is full or the client is closed.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.queue <- frame:
		return true
	default:
		return false
	}
}

// send encodes and queues a message for this client alone.
func (c *Client) send(env Envelope) {
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}
	frame, err := json.Marshal(env)
	if err != nil {
		utils.ErrorLogger.Errorf("Failed to encode %s for client %s: %v", env.Type, c.ID, err)
		return
	}
	if !c.enqueue(frame) {
		c.hub.evict(c, "send queue full")
	}
}

func (c *Client) sendError(msg string) {
	c.send(Envelope{Type: TypeError, Payload: errorPayload{Message: msg}})
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Client) extendReadDeadline() {
	cfg := c.hub.cfg
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PingInterval + cfg.PongGrace))
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.queue:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.hub.evict(c, "write failed: "+err.Error())
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.hub.evict(c, "ping failed: "+err.Error())
				return
			}
		case <-c.closed:
			c.drain()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain writes whatever is still queued, used on a clean close.
func (c *Client) drain() {
	for {
		select {
		case frame := <-c.queue:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) readPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.InfoLogger.WithField("client_id", c.ID).Debugf("Hub client read ended: %v", err)
			}
			return
		}
		c.extendReadDeadline()

		if !c.limiter.Allow() {
			c.dropped.Add(1)
			c.hub.droppedInbound.Add(1)
			continue
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message")
		return
	}

	switch msg.Type {
	case TypePing:
		c.send(Envelope{Type: TypePong})

	case TypeRegisterRestaurant:
		var p registerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.RestaurantID == 0 {
			c.sendError("restaurantId is required")
			return
		}
		c.setScope(p.RestaurantID, 0)
		c.send(Envelope{Type: TypeRegistered, Payload: registerPayload{RestaurantID: p.RestaurantID}})

	case TypeRegisterTable:
		var p registerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.RestaurantID == 0 || p.TableID == 0 {
			c.sendError("restaurantId and tableId are required")
			return
		}
		c.setScope(p.RestaurantID, p.TableID)
		c.send(Envelope{Type: TypeRegistered, Payload: p})

	case TypeCallWaiter:
		c.handleCallWaiter(msg.Payload)

	default:
		c.sendError("unknown message type " + msg.Type)
	}
}

func (c *Client) handleCallWaiter(raw json.RawMessage) {
	restaurantID, tableID := c.scope()
	if tableID == 0 {
		c.sendError("register a table before calling a waiter")
		return
	}
	if c.hub.callWaiter == nil {
		c.sendError("waiter calls are not available")
		return
	}

	var p callWaiterPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			c.sendError("invalid call-waiter payload")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), callWaiterTimeout)
	defer cancel()
	if err := c.hub.callWaiter(ctx, restaurantID, tableID, p.CustomerName, p.RequestType); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"client_id": c.ID,
			"table_id":  tableID,
		}).Errorf("Call waiter failed: %v", err)
		c.sendError("could not call a waiter")
	}
}
