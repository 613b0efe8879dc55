package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Store is the persistence port for tables, sessions, customers, orders and
// bills. It owns no business rules beyond referential lookups.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore wraps an opened gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock returns a copy of the store that stamps updated_at from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

// DB exposes the underlying connection for migrations and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a store bound to one database transaction.
// The transaction commits when fn returns nil and rolls back otherwise; the
// error from fn is returned unchanged.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, now: s.now})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// stamp adds updated_at to a column set so the timestamp changes in the same
// statement as the mutation.
func (s *Store) stamp(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["updated_at"] = s.now()
	return out
}

func (s *Store) updateByID(ctx context.Context, model interface{}, id uint, fields map[string]interface{}) error {
	res := s.conn(ctx).Model(model).Where("id = ?", id).Updates(s.stamp(fields))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
