package database

import (
	"context"

	"github.com/yeremiapane/dinein-app/models"
)

func (s *Store) CreateTable(ctx context.Context, table *models.Table) error {
	return translate(s.conn(ctx).Create(table).Error)
}

func (s *Store) GetTable(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.conn(ctx).First(&table, id).Error; err != nil {
		return nil, translate(err)
	}
	return &table, nil
}

// ListTables returns the restaurant's tables ordered by number.
func (s *Store) ListTables(ctx context.Context, restaurantID uint) ([]models.Table, error) {
	var tables []models.Table
	err := s.conn(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("number ASC").
		Find(&tables).Error
	return tables, translate(err)
}

func (s *Store) SetTableOccupied(ctx context.Context, tableID uint, occupied bool) error {
	return s.updateByID(ctx, &models.Table{}, tableID, map[string]interface{}{
		"occupied": occupied,
	})
}
