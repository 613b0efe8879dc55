package database

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/dinein-app/models"
)

// CreateOrder inserts the order together with its items.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return translate(s.conn(ctx).Omit("Customer").Create(order).Error)
}

// GetOrder loads an order with its items.
func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.conn(ctx).Preload("OrderItems").First(&order, id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *Store) ListSessionOrders(ctx context.Context, sessionID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.conn(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&orders).Error
	return orders, translate(err)
}

func (s *Store) CountSessionOrders(ctx context.Context, sessionID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Order{}).Where("session_id = ?", sessionID).Count(&n).Error
	return n, translate(err)
}

// MaxDisplayNumber returns the highest display number used by the
// restaurant, or 0.
func (s *Store) MaxDisplayNumber(ctx context.Context, restaurantID uint) (int, error) {
	var n int
	err := s.conn(ctx).Model(&models.Order{}).
		Where("restaurant_id = ?", restaurantID).
		Select("COALESCE(MAX(display_number), 0)").
		Scan(&n).Error
	return n, translate(err)
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id uint, status string) error {
	return s.updateByID(ctx, &models.Order{}, id, map[string]interface{}{"status": status})
}

// ReplaceOrderItems deletes the order's items, inserts the new set and
// writes the new total.
func (s *Store) ReplaceOrderItems(ctx context.Context, orderID uint, items []models.OrderItem, total decimal.Decimal) error {
	if err := s.conn(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return translate(err)
	}
	for i := range items {
		items[i].ID = 0
		items[i].OrderID = orderID
	}
	if len(items) > 0 {
		if err := s.conn(ctx).Create(&items).Error; err != nil {
			return translate(err)
		}
	}
	return s.updateByID(ctx, &models.Order{}, orderID, map[string]interface{}{"total": total})
}
