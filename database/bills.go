package database

import (
	"context"

	"github.com/yeremiapane/dinein-app/models"
)

func (s *Store) CreateBill(ctx context.Context, bill *models.Bill) error {
	return translate(s.conn(ctx).Create(bill).Error)
}

func (s *Store) GetBill(ctx context.Context, id uint) (*models.Bill, error) {
	var bill models.Bill
	if err := s.conn(ctx).First(&bill, id).Error; err != nil {
		return nil, translate(err)
	}
	return &bill, nil
}

func (s *Store) ListSessionBills(ctx context.Context, sessionID uint) ([]models.Bill, error) {
	var bills []models.Bill
	err := s.conn(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&bills).Error
	return bills, translate(err)
}

// FindActiveCustomerBill returns the customer's non-cancelled individual
// bill in the session, or ErrNotFound. Partial bills are not counted.
func (s *Store) FindActiveCustomerBill(ctx context.Context, sessionID, customerID uint) (*models.Bill, error) {
	var bill models.Bill
	err := s.conn(ctx).
		Where("session_id = ? AND customer_id = ? AND type = ? AND status <> ?", sessionID, customerID, models.BillIndividual, models.BillCancelled).
		First(&bill).Error
	if err != nil {
		return nil, translate(err)
	}
	return &bill, nil
}

// HasPaidCombinedBill reports whether a combined bill of the session is paid.
func (s *Store) HasPaidCombinedBill(ctx context.Context, sessionID uint) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Bill{}).
		Where("session_id = ? AND type = ? AND status = ?", sessionID, models.BillCombined, models.BillPaid).
		Count(&n).Error
	return n > 0, translate(err)
}

func (s *Store) UpdateBill(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateByID(ctx, &models.Bill{}, id, fields)
}

// CancelPendingBills cancels the session's pending bills, optionally only
// the non-combined ones, and returns how many changed.
func (s *Store) CancelPendingBills(ctx context.Context, sessionID uint, exceptCombined bool) (int64, error) {
	q := s.conn(ctx).Model(&models.Bill{}).
		Where("session_id = ? AND status = ?", sessionID, models.BillPending)
	if exceptCombined {
		q = q.Where("type <> ?", models.BillCombined)
	}
	res := q.Updates(s.stamp(map[string]interface{}{"status": models.BillCancelled}))
	return res.RowsAffected, translate(res.Error)
}

func (s *Store) DeleteBillsBySession(ctx context.Context, sessionID uint) (int64, error) {
	res := s.conn(ctx).Where("session_id = ?", sessionID).Delete(&models.Bill{})
	return res.RowsAffected, translate(res.Error)
}
