package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/models"
	"github.com/yeremiapane/dinein-app/utils"
	"gorm.io/datatypes"
)

const maxOrderInsertAttempts = 3

// OrderItemInput is one requested line of an order.
type OrderItemInput struct {
	MenuItemID    uint            `json:"menuItemId"`
	Quantity      int             `json:"quantity"`
	Customization string          `json:"customization,omitempty"`
	Options       json.RawMessage `json:"options,omitempty"`
}

func validateItems(items []OrderItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	for i, it := range items {
		if it.MenuItemID == 0 {
			return fmt.Errorf("%w: item %d has no menu item", ErrInvalidOrder, i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item %d has quantity %d", ErrInvalidOrder, i, it.Quantity)
		}
	}
	return nil
}

// buildItems snapshots name and price from the restaurant's menu.
func buildItems(ctx context.Context, tx *database.Store, restaurantID uint, in []OrderItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uint, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.MenuItemID)
	}
	menu, err := tx.GetMenuItems(ctx, restaurantID, ids)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load menu items: %w", err)
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(in))
	for _, it := range in {
		menuItem, ok := menu[it.MenuItemID]
		if !ok || !menuItem.Available {
			return nil, decimal.Zero, fmt.Errorf("menu item %d: %w", it.MenuItemID, ErrNotFound)
		}
		subtotal := menuItem.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		item := models.OrderItem{
			MenuItemID:    menuItem.ID,
			Name:          menuItem.Name,
			Quantity:      it.Quantity,
			UnitPrice:     menuItem.Price,
			Subtotal:      subtotal,
			Customization: it.Customization,
		}
		if len(it.Options) > 0 {
			item.Options = datatypes.JSON(it.Options)
		}
		items = append(items, item)
		total = total.Add(subtotal)
	}
	return items, total, nil
}

// CreateOrder places an order for a customer of an open session. The order
// and its items are written in one transaction; the first order activates a
// waiting session.
func (m *SessionManager) CreateOrder(ctx context.Context, customerID, sessionID uint, items []OrderItemInput, notes string) (*models.Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	unlock := m.lockSession(sessionID)
	defer unlock()

	var (
		order     *models.Order
		activated bool
		err       error
	)
	for attempt := 1; ; attempt++ {
		order, activated, err = m.insertOrder(ctx, customerID, sessionID, items, notes)
		if err == nil {
			break
		}
		if !errors.Is(err, database.ErrDuplicateKey) || attempt >= maxOrderInsertAttempts {
			return nil, err
		}
		utils.ErrorLogger.Warnf("Order number collision for session %d (attempt %d/%d): %v",
			sessionID, attempt, maxOrderInsertAttempts, err)
	}

	m.metrics.ordersCreated.Add(1)
	m.ledger.InvalidateSessionCache(sessionID)

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"display":      order.DisplayLabel(),
		"session_id":   sessionID,
		"total":        utils.FormatMoney(order.Total),
	}).Info("Order created")

	m.publisher.Publish(events.New(events.TypeNewOrder,
		events.TableScope(order.RestaurantID, order.TableID), order))

	if activated {
		m.publishSessionStatus(&models.TableSession{
			ID:           sessionID,
			TableID:      order.TableID,
			RestaurantID: order.RestaurantID,
			Status:       models.SessionActive,
		})
	}
	if _, err := m.evaluateLocked(ctx, sessionID); err != nil {
		utils.ErrorLogger.Errorf("Failed to evaluate session %d after order %d: %v", sessionID, order.ID, err)
	}
	return order, nil
}

func (m *SessionManager) insertOrder(ctx context.Context, customerID, sessionID uint, in []OrderItemInput, notes string) (*models.Order, bool, error) {
	var (
		order     *models.Order
		activated bool
	)
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		if !session.IsOpen() {
			return fmt.Errorf("session %d is %s: %w", sessionID, session.Status, ErrSessionNotOpen)
		}
		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			return fmt.Errorf("customer %d: %w", customerID, err)
		}
		if customer.SessionID != sessionID {
			return fmt.Errorf("customer %d, session %d: %w", customerID, sessionID, ErrCustomerSessionMismatch)
		}

		items, total, err := buildItems(ctx, tx, session.RestaurantID, in)
		if err != nil {
			return err
		}
		display, err := tx.MaxDisplayNumber(ctx, session.RestaurantID)
		if err != nil {
			return fmt.Errorf("failed to read display number: %w", err)
		}

		order = &models.Order{
			SessionID:     sessionID,
			CustomerID:    customerID,
			RestaurantID:  session.RestaurantID,
			TableID:       session.TableID,
			OrderNumber:   "ORD-" + m.ids.Generate().String(),
			DisplayNumber: display + 1,
			Status:        models.OrderPending,
			Total:         total,
			Notes:         notes,
			OrderItems:    items,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		if session.Status == models.SessionWaiting {
			if err := tx.UpdateSession(ctx, sessionID, map[string]interface{}{"status": models.SessionActive}); err != nil {
				return fmt.Errorf("failed to activate session: %w", err)
			}
			activated = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, activated, nil
}

// EditOrderItems replaces the items of an order that the kitchen has not
// started yet.
func (m *SessionManager) EditOrderItems(ctx context.Context, orderID uint, items []OrderItemInput) (*models.Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	current, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}

	unlock := m.lockSession(current.SessionID)
	defer unlock()

	var order *models.Order
	err = m.store.Transaction(ctx, func(tx *database.Store) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}
		session, err := tx.GetSession(ctx, order.SessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", order.SessionID, err)
		}
		if !session.IsOpen() {
			return fmt.Errorf("session %d is %s: %w", session.ID, session.Status, ErrSessionNotOpen)
		}
		if order.Status != models.OrderPending && order.Status != models.OrderConfirmed {
			return fmt.Errorf("order %d is %s and can no longer be edited: %w", orderID, order.Status, ErrInvalidTransition)
		}

		newItems, total, err := buildItems(ctx, tx, order.RestaurantID, items)
		if err != nil {
			return err
		}
		if err := tx.ReplaceOrderItems(ctx, orderID, newItems, total); err != nil {
			return fmt.Errorf("failed to replace order items: %w", err)
		}
		order.OrderItems = newItems
		order.Total = total
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.ledger.InvalidateSessionCache(order.SessionID)
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID,
		"items":    len(order.OrderItems),
		"total":    utils.FormatMoney(order.Total),
	}).Info("Order items edited")

	m.publisher.Publish(events.New(events.TypeOrderPatch,
		events.TableScope(order.RestaurantID, order.TableID),
		events.OrderPatchPayload{
			OrderID:   order.ID,
			SessionID: order.SessionID,
			Status:    order.Status,
			Total:     utils.FormatMoney(order.Total),
			Items:     order.OrderItems,
		}))

	if _, err := m.ledger.CalculateSessionTotals(ctx, order.SessionID); err != nil {
		utils.ErrorLogger.Errorf("Failed to recompute totals of session %d: %v", order.SessionID, err)
	}
	return order, nil
}

func (m *SessionManager) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}
	return order, nil
}

// UpdateOrderStatus moves an order along the kitchen flow. Illegal moves
// leave the stored status untouched.
func (m *SessionManager) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (*models.Order, error) {
	current, err := m.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}

	unlock := m.lockSession(current.SessionID)
	defer unlock()

	var order *models.Order
	err = m.store.Transaction(ctx, func(tx *database.Store) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}
		if !CanTransitionOrder(order.Status, status) {
			return &TransitionError{
				Entity:  "order",
				From:    order.Status,
				To:      status,
				Allowed: NextOrderStatuses(order.Status),
			}
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("Order status updated")

	m.publisher.Publish(events.New(events.TypeOrderStatus,
		events.TableScope(order.RestaurantID, order.TableID),
		events.OrderStatusPayload{OrderID: order.ID, SessionID: order.SessionID, Status: status}))

	if status == models.OrderCancelled {
		m.ledger.InvalidateSessionCache(order.SessionID)
		if _, err := m.evaluateLocked(ctx, order.SessionID); err != nil {
			utils.ErrorLogger.Errorf("Failed to evaluate session %d after cancelling order %d: %v", order.SessionID, orderID, err)
		}
	}
	return order, nil
}
