package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/dinein-app/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = Close(db) })
	return NewStore(db)
}

func seedTable(t *testing.T, s *Store, restaurantID uint, number int) *models.Table {
	t.Helper()
	table := &models.Table{RestaurantID: restaurantID, Number: number, Capacity: 4}
	require.NoError(t, s.CreateTable(context.Background(), table))
	return table
}

func seedSession(t *testing.T, s *Store, table *models.Table, status string, start time.Time) *models.TableSession {
	t.Helper()
	session := &models.TableSession{
		TableID:      table.ID,
		RestaurantID: table.RestaurantID,
		PartySize:    2,
		Status:       status,
		StartTime:    start,
	}
	require.NoError(t, s.CreateSession(context.Background(), session))
	return session
}

func seedBill(t *testing.T, s *Store, sessionID uint, customerID *uint, billType, status string) *models.Bill {
	t.Helper()
	bill := &models.Bill{
		SessionID:  sessionID,
		CustomerID: customerID,
		BillNumber: "BILL-" + uuid.NewString(),
		Type:       billType,
		Status:     status,
		Total:      decimal.RequireFromString("5.00"),
	}
	require.NoError(t, s.CreateBill(context.Background(), bill))
	return bill
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.ErrorContains(t, err, "oracle")
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetSession(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetBill(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateSession(ctx, 42, map[string]interface{}{"status": models.SessionActive}), ErrNotFound)
	assert.ErrorIs(t, s.DeleteSession(ctx, 42), ErrNotFound)
	assert.ErrorIs(t, s.SetTableOccupied(ctx, 42, true), ErrNotFound)
}

func TestStore_OneOpenSessionPerTable(t *testing.T) {
	s := newTestStore(t)
	table := seedTable(t, s, 1, 1)
	now := time.Now()

	seedSession(t, s, table, models.SessionCompleted, now.Add(-time.Hour))
	open := seedSession(t, s, table, models.SessionWaiting, now)

	dup := &models.TableSession{
		TableID: table.ID, RestaurantID: 1, PartySize: 1,
		Status: models.SessionActive, StartTime: now,
	}
	err := s.CreateSession(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey), err)
	assert.False(t, IsTransient(err))

	found, err := s.FindOpenSessionForTable(context.Background(), table.ID, true)
	require.NoError(t, err)
	assert.Equal(t, open.ID, found.ID)
}

func TestStore_UpdateStampsUpdatedAt(t *testing.T) {
	base := newTestStore(t)
	table := seedTable(t, base, 1, 1)
	session := seedSession(t, base, table, models.SessionWaiting, time.Now())

	stamp := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	s := base.WithClock(func() time.Time { return stamp })
	require.NoError(t, s.UpdateSessionTotals(context.Background(), session.ID,
		decimal.RequireFromString("24.00"), decimal.RequireFromString("10.00")))

	got, err := s.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(stamp), got.UpdatedAt)
	assert.True(t, decimal.RequireFromString("24").Equal(got.TotalAmount))
	assert.True(t, decimal.RequireFromString("10").Equal(got.PaidAmount))
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	table := seedTable(t, s, 1, 1)
	boom := errors.New("boom")

	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.SetTableOccupied(ctx, table.ID, true); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetTable(ctx, table.ID)
	require.NoError(t, err)
	assert.False(t, got.Occupied)
}

func TestStore_ListStaleOpenSessions(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	cutoff := now.Add(-30 * time.Minute)

	oldest := seedSession(t, s, seedTable(t, s, 1, 1), models.SessionActive, now.Add(-3*time.Hour))
	older := seedSession(t, s, seedTable(t, s, 1, 2), models.SessionWaiting, now.Add(-2*time.Hour))
	seedSession(t, s, seedTable(t, s, 1, 3), models.SessionWaiting, now.Add(-time.Minute))
	seedSession(t, s, seedTable(t, s, 1, 4), models.SessionCompleted, now.Add(-5*time.Hour))

	stale, err := s.ListStaleOpenSessions(context.Background(), cutoff, 0)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, oldest.ID, stale[0].ID)
	assert.Equal(t, older.ID, stale[1].ID)

	limited, err := s.ListStaleOpenSessions(context.Background(), cutoff, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	ids, err := s.ListOpenSessionTableIDs(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestStore_CustomerBillsAndCancellation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := seedSession(t, s, seedTable(t, s, 1, 1), models.SessionActive, time.Now())

	var customers []*models.Customer
	for _, name := range []string{"Ana", "Budi", "Citra"} {
		c := &models.Customer{SessionID: session.ID, Name: name, PaymentStatus: models.CustomerPaymentPending}
		require.NoError(t, s.CreateCustomer(ctx, c))
		customers = append(customers, c)
	}

	seedBill(t, s, session.ID, &customers[0].ID, models.BillIndividual, models.BillPaid)
	seedBill(t, s, session.ID, &customers[1].ID, models.BillIndividual, models.BillCancelled)
	pending := seedBill(t, s, session.ID, &customers[1].ID, models.BillIndividual, models.BillPending)
	combined := seedBill(t, s, session.ID, nil, models.BillCombined, models.BillPending)

	rows, err := s.CustomerBillStatuses(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Paid())
	require.NotNil(t, rows[1].BillID, "cancelled bills are ignored")
	assert.Equal(t, pending.ID, *rows[1].BillID)
	assert.False(t, rows[1].Paid())
	assert.Nil(t, rows[2].BillID)

	active, err := s.FindActiveCustomerBill(ctx, session.ID, customers[1].ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, active.ID)

	n, err := s.CancelPendingBills(ctx, session.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	got, err := s.GetBill(ctx, combined.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPending, got.Status, "combined bill kept")

	n, err = s.CancelPendingBills(ctx, session.ID, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.SetCustomerPaymentStatus(ctx, session.ID, nil, models.CustomerPaymentPaid))
	list, err := s.ListCustomers(ctx, session.ID)
	require.NoError(t, err)
	for _, c := range list {
		assert.Equal(t, models.CustomerPaymentPaid, c.PaymentStatus)
	}
}

func TestStore_OrdersAndDisplayNumbers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	table := seedTable(t, s, 1, 1)
	session := seedSession(t, s, table, models.SessionActive, time.Now())
	customer := &models.Customer{SessionID: session.ID, Name: "Ana", PaymentStatus: models.CustomerPaymentPending}
	require.NoError(t, s.CreateCustomer(ctx, customer))

	highest, err := s.MaxDisplayNumber(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, highest)

	newOrder := func(display int) *models.Order {
		return &models.Order{
			SessionID: session.ID, CustomerID: customer.ID, RestaurantID: 1, TableID: table.ID,
			OrderNumber: "ORD-" + uuid.NewString(), DisplayNumber: display, Status: models.OrderPending,
			Total: decimal.RequireFromString("4.00"),
			OrderItems: []models.OrderItem{{
				MenuItemID: 1, Name: "Es Teh", Quantity: 2,
				UnitPrice: decimal.RequireFromString("2.00"), Subtotal: decimal.RequireFromString("4.00"),
			}},
		}
	}
	order := newOrder(1)
	require.NoError(t, s.CreateOrder(ctx, order))
	assert.ErrorIs(t, s.CreateOrder(ctx, newOrder(1)), ErrDuplicateKey)

	highest, err = s.MaxDisplayNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, highest)

	require.NoError(t, s.ReplaceOrderItems(ctx, order.ID, []models.OrderItem{{
		MenuItemID: 2, Name: "Nasi Goreng", Quantity: 1,
		UnitPrice: decimal.RequireFromString("10.00"), Subtotal: decimal.RequireFromString("10.00"),
	}}, decimal.RequireFromString("10.00")))

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.OrderItems, 1)
	assert.Equal(t, "Nasi Goreng", got.OrderItems[0].Name)
	assert.True(t, decimal.RequireFromString("10").Equal(got.Total))

	n, err := s.CountSessionOrders(ctx, session.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStore_PartialBillsAreNotCustomerBills(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := seedSession(t, s, seedTable(t, s, 1, 1), models.SessionActive, time.Now())
	c := &models.Customer{SessionID: session.ID, Name: "Ana", PaymentStatus: models.CustomerPaymentPending}
	require.NoError(t, s.CreateCustomer(ctx, c))

	seedBill(t, s, session.ID, &c.ID, models.BillPartial, models.BillPaid)

	rows, err := s.CustomerBillStatuses(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].BillID)
	assert.False(t, rows[0].Paid())

	_, err = s.FindActiveCustomerBill(ctx, session.ID, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
