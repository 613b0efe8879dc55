package database

import (
	"context"

	"github.com/yeremiapane/dinein-app/models"
)

// CustomerBill is one customer of a session joined to its non-cancelled
// individual bill, if any.
type CustomerBill struct {
	CustomerID   uint
	CustomerName string
	BillID       *uint
	BillStatus   *string
}

// Paid reports whether the customer has a bill and it is paid.
func (cb CustomerBill) Paid() bool {
	return cb.BillID != nil && cb.BillStatus != nil && *cb.BillStatus == models.BillPaid
}

func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return translate(s.conn(ctx).Create(customer).Error)
}

func (s *Store) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := s.conn(ctx).First(&customer, id).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (s *Store) ListCustomers(ctx context.Context, sessionID uint) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.conn(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&customers).Error
	return customers, translate(err)
}

func (s *Store) CountCustomers(ctx context.Context, sessionID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Customer{}).Where("session_id = ?", sessionID).Count(&n).Error
	return n, translate(err)
}

// SetCustomerPaymentStatus updates the given customers, or every customer of
// the session when ids is empty.
func (s *Store) SetCustomerPaymentStatus(ctx context.Context, sessionID uint, ids []uint, status string) error {
	q := s.conn(ctx).Model(&models.Customer{}).Where("session_id = ?", sessionID)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	return translate(q.Updates(s.stamp(map[string]interface{}{"payment_status": status})).Error)
}

func (s *Store) DeleteCustomersBySession(ctx context.Context, sessionID uint) (int64, error) {
	res := s.conn(ctx).Where("session_id = ?", sessionID).Delete(&models.Customer{})
	return res.RowsAffected, translate(res.Error)
}

// CustomerBillStatuses joins every customer of the session to its
// non-cancelled individual bill.
func (s *Store) CustomerBillStatuses(ctx context.Context, sessionID uint) ([]CustomerBill, error) {
	var rows []CustomerBill
	err := s.conn(ctx).Table("customers").
		Select("customers.id AS customer_id, customers.name AS customer_name, bills.id AS bill_id, bills.status AS bill_status").
		Joins("LEFT JOIN bills ON bills.customer_id = customers.id AND bills.session_id = customers.session_id AND bills.type = ? AND bills.status <> ?", models.BillIndividual, models.BillCancelled).
		Where("customers.session_id = ?", sessionID).
		Order("customers.id ASC").
		Scan(&rows).Error
	return rows, translate(err)
}
