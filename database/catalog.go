package database

import (
	"context"

	"github.com/yeremiapane/dinein-app/models"
)

func (s *Store) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return translate(s.conn(ctx).Create(item).Error)
}

// GetMenuItems returns the restaurant's menu items among ids, keyed by id.
func (s *Store) GetMenuItems(ctx context.Context, restaurantID uint, ids []uint) (map[uint]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.conn(ctx).Where("restaurant_id = ? AND id IN ?", restaurantID, ids).Find(&items).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[uint]models.MenuItem, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate(s.conn(ctx).Create(n).Error)
}

func (s *Store) ListNotifications(ctx context.Context, restaurantID uint, limit int) ([]models.Notification, error) {
	var out []models.Notification
	q := s.conn(ctx).Where("restaurant_id = ?", restaurantID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}
