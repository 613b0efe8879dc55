package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/models"
	"github.com/yeremiapane/dinein-app/utils"
)

// BillRequest describes a bill to open. Individual bills need a customer;
// combined bills must not have one; partial bills carry an explicit amount.
type BillRequest struct {
	Type       string           `json:"type"`
	CustomerID *uint            `json:"customerId,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

// BillService opens, pays and cancels bills. Payment capture happens
// elsewhere; marking a bill paid is the trigger for completion checks.
type BillService struct {
	sessions *SessionManager
}

func NewBillService(sessions *SessionManager) *BillService {
	return &BillService{sessions: sessions}
}

// CreateBill opens a pending bill in an open session. A customer can hold at
// most one non-cancelled individual bill per session, and a session at most
// one non-cancelled combined bill. Individual and combined bills cover what
// is still outstanding after paid bills.
func (s *BillService) CreateBill(ctx context.Context, sessionID uint, req BillRequest) (*models.Bill, error) {
	m := s.sessions
	unlock := m.lockSession(sessionID)
	defer unlock()

	var bill *models.Bill
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		if !session.IsOpen() {
			return fmt.Errorf("session %d is %s: %w", sessionID, session.Status, ErrSessionNotOpen)
		}

		orders, err := tx.ListSessionOrders(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		bills, err := tx.ListSessionBills(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list bills: %w", err)
		}

		if req.CustomerID != nil {
			if err := checkBillCustomer(ctx, tx, sessionID, *req.CustomerID, req.Type); err != nil {
				return err
			}
		}

		var total decimal.Decimal
		switch req.Type {
		case models.BillIndividual:
			if req.CustomerID == nil {
				return fmt.Errorf("%w: individual bill needs a customer", ErrInvalidBill)
			}
			total = outstanding(sumOrders(orders, req.CustomerID), sumPaidPartials(bills, req.CustomerID))
		case models.BillCombined:
			if req.CustomerID != nil {
				return fmt.Errorf("%w: combined bill cannot name a customer", ErrInvalidBill)
			}
			for _, b := range bills {
				if b.IsCombined() && b.Status != models.BillCancelled {
					return fmt.Errorf("session %d already has combined bill %s: %w", sessionID, b.BillNumber, ErrBillExists)
				}
			}
			total = outstanding(sumOrders(orders, nil), sumPaidBills(bills))
		case models.BillPartial:
			if req.Amount == nil || !req.Amount.IsPositive() {
				return fmt.Errorf("%w: partial bill needs a positive amount", ErrInvalidBill)
			}
			total = req.Amount.Round(2)
		default:
			return fmt.Errorf("%w: unknown bill type %q", ErrInvalidBill, req.Type)
		}

		bill = &models.Bill{
			SessionID:  sessionID,
			CustomerID: req.CustomerID,
			BillNumber: "BILL-" + uuid.NewString(),
			Type:       req.Type,
			Status:     models.BillPending,
			Total:      total,
		}
		if err := tx.CreateBill(ctx, bill); err != nil {
			return fmt.Errorf("failed to create bill: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.ledger.InvalidateSessionCache(sessionID)
	utils.InfoLogger.WithFields(logrus.Fields{
		"bill_id":     bill.ID,
		"bill_number": bill.BillNumber,
		"session_id":  sessionID,
		"type":        bill.Type,
		"total":       utils.FormatMoney(bill.Total),
	}).Info("Bill created")
	return bill, nil
}

func checkBillCustomer(ctx context.Context, tx *database.Store, sessionID, customerID uint, billType string) error {
	customer, err := tx.GetCustomer(ctx, customerID)
	if err != nil {
		return fmt.Errorf("customer %d: %w", customerID, err)
	}
	if customer.SessionID != sessionID {
		return fmt.Errorf("customer %d, session %d: %w", customerID, sessionID, ErrCustomerSessionMismatch)
	}
	if billType == models.BillPartial {
		return nil
	}
	existing, err := tx.FindActiveCustomerBill(ctx, sessionID, customerID)
	switch {
	case err == nil:
		return fmt.Errorf("customer %d already has bill %s: %w", customerID, existing.BillNumber, ErrBillExists)
	case !errors.Is(err, database.ErrNotFound):
		return fmt.Errorf("failed to check customer bill: %w", err)
	}
	return nil
}

// MarkBillPaid settles a pending bill and re-evaluates the session. Paying
// an already paid bill is a no-op.
func (s *BillService) MarkBillPaid(ctx context.Context, billID uint) (*models.Bill, *models.TableSession, error) {
	m := s.sessions
	current, err := m.store.GetBill(ctx, billID)
	if err != nil {
		return nil, nil, fmt.Errorf("bill %d: %w", billID, err)
	}

	unlock := m.lockSession(current.SessionID)
	defer unlock()

	var (
		bill    *models.Bill
		changed bool
	)
	err = m.store.Transaction(ctx, func(tx *database.Store) error {
		var err error
		bill, err = tx.GetBill(ctx, billID)
		if err != nil {
			return fmt.Errorf("bill %d: %w", billID, err)
		}
		switch bill.Status {
		case models.BillPaid:
			return nil
		case models.BillCancelled:
			return &TransitionError{Entity: "bill", From: bill.Status, To: models.BillPaid}
		}

		paidAt := m.Clock()
		if err := tx.UpdateBill(ctx, billID, map[string]interface{}{
			"status":  models.BillPaid,
			"paid_at": paidAt,
		}); err != nil {
			return fmt.Errorf("failed to mark bill paid: %w", err)
		}
		bill.Status = models.BillPaid
		bill.PaidAt = &paidAt

		if bill.CustomerID != nil && bill.Type == models.BillIndividual {
			if err := tx.SetCustomerPaymentStatus(ctx, bill.SessionID, []uint{*bill.CustomerID}, models.CustomerPaymentPaid); err != nil {
				return fmt.Errorf("failed to mark customer paid: %w", err)
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if changed {
		m.metrics.billsPaid.Add(1)
		m.ledger.InvalidateSessionCache(bill.SessionID)
		utils.InfoLogger.WithFields(logrus.Fields{
			"bill_id":    billID,
			"session_id": bill.SessionID,
			"total":      utils.FormatMoney(bill.Total),
		}).Info("Bill paid")
	}

	session, err := m.evaluateLocked(ctx, bill.SessionID)
	if err != nil {
		return bill, nil, fmt.Errorf("failed to evaluate session %d: %w", bill.SessionID, err)
	}
	return bill, session, nil
}

// CancelBill voids a pending bill so the customer can be billed again.
func (s *BillService) CancelBill(ctx context.Context, billID uint) (*models.Bill, error) {
	m := s.sessions
	current, err := m.store.GetBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("bill %d: %w", billID, err)
	}

	unlock := m.lockSession(current.SessionID)
	defer unlock()

	var bill *models.Bill
	err = m.store.Transaction(ctx, func(tx *database.Store) error {
		var err error
		bill, err = tx.GetBill(ctx, billID)
		if err != nil {
			return fmt.Errorf("bill %d: %w", billID, err)
		}
		switch bill.Status {
		case models.BillCancelled:
			return nil
		case models.BillPaid:
			return &TransitionError{Entity: "bill", From: bill.Status, To: models.BillCancelled}
		}
		if err := tx.UpdateBill(ctx, billID, map[string]interface{}{"status": models.BillCancelled}); err != nil {
			return fmt.Errorf("failed to cancel bill: %w", err)
		}
		bill.Status = models.BillCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.ledger.InvalidateSessionCache(bill.SessionID)
	utils.InfoLogger.WithFields(logrus.Fields{
		"bill_id":    billID,
		"session_id": bill.SessionID,
	}).Info("Bill cancelled")
	return bill, nil
}
