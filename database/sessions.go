package database

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/dinein-app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateSession(ctx context.Context, session *models.TableSession) error {
	return translate(s.conn(ctx).Omit("Table", "Customers", "Orders", "Bills").Create(session).Error)
}

func (s *Store) GetSession(ctx context.Context, id uint) (*models.TableSession, error) {
	var session models.TableSession
	if err := s.conn(ctx).First(&session, id).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// GetSessionDetail loads the session with its table, customers, orders (and
// their items) and bills.
func (s *Store) GetSessionDetail(ctx context.Context, id uint) (*models.TableSession, error) {
	var session models.TableSession
	err := s.conn(ctx).
		Preload("Table").
		Preload("Customers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Orders.OrderItems").
		Preload("Bills", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&session, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// FindOpenSessionForTable returns the waiting or active session of a table,
// or ErrNotFound. With lock set the row is selected FOR UPDATE on dialects
// that support it.
func (s *Store) FindOpenSessionForTable(ctx context.Context, tableID uint, lock bool) (*models.TableSession, error) {
	q := s.conn(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var session models.TableSession
	err := q.Where("table_id = ? AND status IN ?", tableID, models.OpenSessionStatuses).
		Order("id ASC").
		First(&session).Error
	if err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

// ListOpenSessionTableIDs returns the distinct tables of a restaurant that
// currently have a waiting or active session.
func (s *Store) ListOpenSessionTableIDs(ctx context.Context, restaurantID uint) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&models.TableSession{}).
		Where("restaurant_id = ? AND status IN ?", restaurantID, models.OpenSessionStatuses).
		Distinct().
		Pluck("table_id", &ids).Error
	return ids, translate(err)
}

// ListStaleOpenSessions returns up to limit open sessions that started
// before cutoff, oldest first.
func (s *Store) ListStaleOpenSessions(ctx context.Context, cutoff time.Time, limit int) ([]models.TableSession, error) {
	var sessions []models.TableSession
	q := s.conn(ctx).
		Where("status IN ? AND start_time < ?", models.OpenSessionStatuses, cutoff).
		Order("start_time ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&sessions).Error
	return sessions, translate(err)
}

// UpdateSession writes the given columns and updated_at.
func (s *Store) UpdateSession(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateByID(ctx, &models.TableSession{}, id, fields)
}

func (s *Store) UpdateSessionTotals(ctx context.Context, id uint, total, paid decimal.Decimal) error {
	return s.UpdateSession(ctx, id, map[string]interface{}{
		"total_amount": total,
		"paid_amount":  paid,
	})
}

// DeleteSession hard-deletes the session row. Children must be removed first.
func (s *Store) DeleteSession(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&models.TableSession{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
