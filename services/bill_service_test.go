package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/dinein-app/models"
	"github.com/yeremiapane/dinein-app/utils"
)

func TestCreateBill_OnePerCustomer(t *testing.T) {
	env := newTestEnv(t)
	session, customers := env.openSession(t, 1, "Alice")
	_, err := env.manager.CreateOrder(env.ctx, customers[0].ID, session.ID, []OrderItemInput{env.item("Nasi Goreng", 1)}, "")
	require.NoError(t, err)

	first, err := env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillIndividual, CustomerID: &customers[0].ID})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.BillNumber, "BILL-"))
	assert.Equal(t, models.BillPending, first.Status)

	_, err = env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillIndividual, CustomerID: &customers[0].ID})
	assert.True(t, errors.Is(err, ErrBillExists))

	_, err = env.bills.CancelBill(env.ctx, first.ID)
	require.NoError(t, err)
	second, err := env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillIndividual, CustomerID: &customers[0].ID})
	require.NoError(t, err, "a cancelled bill frees the customer")
	assert.NotEqual(t, first.BillNumber, second.BillNumber)
}

func TestCreateBill_Validation(t *testing.T) {
	env := newTestEnv(t)
	session, customers := env.openSession(t, 1, "Alice")
	_, strangers := env.openSession(t, 2, "Eve")
	amount := money("5.00")
	negative := money("-1")

	tests := []struct {
		name string
		req  BillRequest
		want error
	}{
		{"individual without customer", BillRequest{Type: models.BillIndividual}, ErrInvalidBill},
		{"combined with customer", BillRequest{Type: models.BillCombined, CustomerID: &customers[0].ID}, ErrInvalidBill},
		{"partial without amount", BillRequest{Type: models.BillPartial}, ErrInvalidBill},
		{"partial with negative amount", BillRequest{Type: models.BillPartial, Amount: &negative}, ErrInvalidBill},
		{"unknown type", BillRequest{Type: "split"}, ErrInvalidBill},
		{"customer of another session", BillRequest{Type: models.BillIndividual, CustomerID: &strangers[0].ID}, ErrCustomerSessionMismatch},
		{"partial for stranger", BillRequest{Type: models.BillPartial, CustomerID: &strangers[0].ID, Amount: &amount}, ErrCustomerSessionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.bills.CreateBill(env.ctx, session.ID, tt.req)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := env.bills.CreateBill(env.ctx, 9999, BillRequest{Type: models.BillCombined})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCreateBill_SingleCombinedBill(t *testing.T) {
	env := newTestEnv(t)
	session, customers := env.openSession(t, 1, "Alice")
	_, err := env.manager.CreateOrder(env.ctx, customers[0].ID, session.ID, []OrderItemInput{env.item("Es Teh", 2)}, "")
	require.NoError(t, err)

	_, err = env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillCombined})
	require.NoError(t, err)
	_, err = env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillCombined})
	assert.True(t, errors.Is(err, ErrBillExists))
}

func TestMarkBillPaid(t *testing.T) {
	env := newTestEnv(t)
	session, customers := env.openSession(t, 1, "Alice", "Bob")
	_, err := env.manager.CreateOrder(env.ctx, customers[0].ID, session.ID, []OrderItemInput{env.item("Nasi Goreng", 1)}, "")
	require.NoError(t, err)
	bill, err := env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillIndividual, CustomerID: &customers[0].ID})
	require.NoError(t, err)

	paid, session2, err := env.bills.MarkBillPaid(env.ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, "10.00", utils.FormatMoney(session2.PaidAmount))
	assert.Equal(t, models.SessionActive, session2.Status)

	alice, err := env.store.GetCustomer(env.ctx, customers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerPaymentPaid, alice.PaymentStatus)

	_, _, err = env.bills.MarkBillPaid(env.ctx, bill.ID)
	assert.NoError(t, err, "paying twice is a no-op")
	assert.Equal(t, int64(1), env.manager.Metrics().BillsPaid)

	_, err = env.bills.CancelBill(env.ctx, bill.ID)
	assert.True(t, errors.Is(err, ErrInvalidTransition), "paid bills cannot be cancelled")
}

func TestMarkBillPaid_CancelledBill(t *testing.T) {
	env := newTestEnv(t)
	session, customers := env.openSession(t, 1, "Alice")
	_, err := env.manager.CreateOrder(env.ctx, customers[0].ID, session.ID, []OrderItemInput{env.item("Es Teh", 1)}, "")
	require.NoError(t, err)
	bill, err := env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillIndividual, CustomerID: &customers[0].ID})
	require.NoError(t, err)
	_, err = env.bills.CancelBill(env.ctx, bill.ID)
	require.NoError(t, err)

	_, _, err = env.bills.MarkBillPaid(env.ctx, bill.ID)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, models.SessionActive, env.session(t, session.ID).Status)
}

func TestMarkBillPaid_PartialBillLeavesSessionOpen(t *testing.T) {
	env := newTestEnv(t)
	session, customers := env.openSession(t, 1, "Alice")
	alice := customers[0]
	_, err := env.manager.CreateOrder(env.ctx, alice.ID, session.ID, []OrderItemInput{env.item("Nasi Goreng", 2)}, "")
	require.NoError(t, err)

	amount := money("1.00")
	partial, err := env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillPartial, CustomerID: &alice.ID, Amount: &amount})
	require.NoError(t, err)
	_, got, err := env.bills.MarkBillPaid(env.ctx, partial.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, got.Status)
	assert.True(t, env.table(t, 1).Occupied)

	stillOwing, err := env.store.GetCustomer(env.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerPaymentPending, stillOwing.PaymentStatus)

	rest, err := env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillIndividual, CustomerID: &alice.ID})
	require.NoError(t, err, "a partial payment does not use up the customer's bill")
	assert.Equal(t, "19.00", utils.FormatMoney(rest.Total))

	_, got, err = env.bills.MarkBillPaid(env.ctx, rest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)
	assert.Equal(t, "20.00", utils.FormatMoney(got.PaidAmount))
	assert.Equal(t, "20.00", utils.FormatMoney(got.TotalAmount))
}

func TestCreateBill_CombinedCoversOnlyOutstanding(t *testing.T) {
	env := newTestEnv(t)
	session, customers := env.openSession(t, 1, "Alice", "Bob")
	_, err := env.manager.CreateOrder(env.ctx, customers[0].ID, session.ID, []OrderItemInput{env.item("Nasi Goreng", 1)}, "")
	require.NoError(t, err)
	_, err = env.manager.CreateOrder(env.ctx, customers[1].ID, session.ID, []OrderItemInput{env.item("Es Teh", 1)}, "")
	require.NoError(t, err)

	aliceBill, err := env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillIndividual, CustomerID: &customers[0].ID})
	require.NoError(t, err)
	_, _, err = env.bills.MarkBillPaid(env.ctx, aliceBill.ID)
	require.NoError(t, err)

	combined, err := env.bills.CreateBill(env.ctx, session.ID, BillRequest{Type: models.BillCombined})
	require.NoError(t, err)
	assert.Equal(t, "2.00", utils.FormatMoney(combined.Total))

	_, got, err := env.bills.MarkBillPaid(env.ctx, combined.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, got.Status)
	assert.Equal(t, "12.00", utils.FormatMoney(got.TotalAmount))
	assert.Equal(t, "12.00", utils.FormatMoney(got.PaidAmount))
}
