package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/models"
	"github.com/yeremiapane/dinein-app/utils"
)

const DefaultLedgerTTL = 30 * time.Second

// Totals are the derived amounts of one session.
type Totals struct {
	SessionID   uint            `json:"sessionId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	PaidAmount  decimal.Decimal `json:"paidAmount"`
}

// SessionLedger derives session totals from orders and bills and keeps the
// denormalised copy on the session row in step.
type SessionLedger struct {
	store     *database.Store
	publisher events.Publisher
	cache     *ttlcache.Cache[uint, Totals]
	retry     readRetry
}

func NewSessionLedger(store *database.Store, publisher events.Publisher, ttl time.Duration) *SessionLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	if publisher == nil {
		publisher = events.Nop
	}
	return &SessionLedger{
		store:     store,
		publisher: publisher,
		cache:     newTotalsCache(ttl),
		retry:     defaultReadRetry,
	}
}

// InvalidateSessionCache drops the memoised totals of a session. Every
// writer of orders or bills calls it before returning.
func (l *SessionLedger) InvalidateSessionCache(sessionID uint) {
	l.cache.Delete(sessionID)
}

// PruneCache evicts expired totals.
func (l *SessionLedger) PruneCache() {
	l.cache.DeleteExpired()
}

// CalculateSessionTotals sums non-cancelled orders and paid bills. The
// session row is written, and an update published, only when a value moved.
func (l *SessionLedger) CalculateSessionTotals(ctx context.Context, sessionID uint) (Totals, error) {
	if item := l.cache.Get(sessionID); item != nil {
		return item.Value(), nil
	}

	var (
		session *models.TableSession
		orders  []models.Order
		bills   []models.Bill
	)
	err := l.retry.do(ctx, "ledger read", func() error {
		var err error
		if session, err = l.store.GetSession(ctx, sessionID); err != nil {
			return err
		}
		if orders, err = l.store.ListSessionOrders(ctx, sessionID); err != nil {
			return err
		}
		bills, err = l.store.ListSessionBills(ctx, sessionID)
		return err
	})
	if err != nil {
		return Totals{}, fmt.Errorf("failed to read session %d: %w", sessionID, err)
	}

	totals := Totals{
		SessionID:   sessionID,
		TotalAmount: sumOrders(orders, nil),
		PaidAmount:  sumPaidBills(bills),
	}

	if !totals.TotalAmount.Equal(session.TotalAmount) || !totals.PaidAmount.Equal(session.PaidAmount) {
		if err := l.store.UpdateSessionTotals(ctx, sessionID, totals.TotalAmount, totals.PaidAmount); err != nil {
			return Totals{}, fmt.Errorf("failed to write totals of session %d: %w", sessionID, err)
		}
		utils.InfoLogger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"total":      utils.FormatMoney(totals.TotalAmount),
			"paid":       utils.FormatMoney(totals.PaidAmount),
		}).Debug("Session totals updated")

		l.publisher.Publish(events.New(events.TypeSessionTotals,
			events.TableScope(session.RestaurantID, session.TableID),
			events.SessionTotalsPayload{
				SessionID:   sessionID,
				Status:      session.Status,
				TotalAmount: utils.FormatMoney(totals.TotalAmount),
				PaidAmount:  utils.FormatMoney(totals.PaidAmount),
			}))
	}

	l.cache.Set(sessionID, totals, ttlcache.DefaultTTL)
	return totals, nil
}

// sumOrders totals non-cancelled orders, optionally for one customer.
func sumOrders(orders []models.Order, customerID *uint) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		if customerID != nil && o.CustomerID != *customerID {
			continue
		}
		total = total.Add(o.Total)
	}
	return total
}

// outstanding is owed minus paid, never below zero.
func outstanding(owed, paid decimal.Decimal) decimal.Decimal {
	if paid.GreaterThanOrEqual(owed) {
		return decimal.Zero
	}
	return owed.Sub(paid)
}

// sumPaidPartials adds up the customer's paid partial bills.
func sumPaidPartials(bills []models.Bill, customerID *uint) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bills {
		if b.Type != models.BillPartial || b.Status != models.BillPaid {
			continue
		}
		if b.CustomerID == nil || *b.CustomerID != *customerID {
			continue
		}
		total = total.Add(b.Total)
	}
	return total
}

func sumPaidBills(bills []models.Bill) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bills {
		if b.Status == models.BillPaid {
			total = total.Add(b.Total)
		}
	}
	return total
}
