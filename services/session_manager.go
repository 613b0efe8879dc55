package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/events"
	"github.com/yeremiapane/dinein-app/models"
	"github.com/yeremiapane/dinein-app/utils"
)

// CompletionCheck explains whether a session could be closed right now.
type CompletionCheck struct {
	CanComplete  bool   `json:"canComplete"`
	Reason       string `json:"reason"`
	BillsPending int    `json:"billsPending"`
}

// SessionManager is the only writer of session status. Writes for one table
// or one session are serialised in process and each runs in a single
// transaction.
type SessionManager struct {
	store     *database.Store
	ledger    *SessionLedger
	occupancy *OccupancySynchronizer
	publisher events.Publisher
	ids       *snowflake.Node
	locks     *keyedMutex
	metrics   *Metrics

	// Clock stamps start, end, request and payment times.
	Clock func() time.Time
}

func NewSessionManager(store *database.Store, ledger *SessionLedger, occupancy *OccupancySynchronizer,
	publisher events.Publisher, ids *snowflake.Node) (*SessionManager, error) {
	if publisher == nil {
		publisher = events.Nop
	}
	if ids == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return nil, fmt.Errorf("failed to create id node: %w", err)
		}
		ids = node
	}
	return &SessionManager{
		store:     store,
		ledger:    ledger,
		occupancy: occupancy,
		publisher: publisher,
		ids:       ids,
		locks:     newKeyedMutex(),
		metrics:   &Metrics{},
		Clock:     time.Now,
	}, nil
}

// Metrics returns the engine counters.
func (m *SessionManager) Metrics() MetricsSnapshot {
	return m.metrics.Snapshot()
}

func (m *SessionManager) lockSession(id uint) func() {
	return m.locks.Lock(sessionKey(id))
}

// GetSession loads a session with its table, customers, orders and bills.
func (m *SessionManager) GetSession(ctx context.Context, sessionID uint) (*models.TableSession, error) {
	session, err := m.store.GetSessionDetail(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, err)
	}
	return session, nil
}

func (m *SessionManager) ListTables(ctx context.Context, restaurantID uint) ([]models.Table, error) {
	return m.store.ListTables(ctx, restaurantID)
}

// ListWaiterCalls returns the newest waiter calls of a restaurant.
func (m *SessionManager) ListWaiterCalls(ctx context.Context, restaurantID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return m.store.ListNotifications(ctx, restaurantID, limit)
}

// CreateSession opens a waiting session on a free table. When the table
// already has an open session the error is a *TableOccupiedError.
func (m *SessionManager) CreateSession(ctx context.Context, tableID, restaurantID uint, partySize int) (*models.TableSession, error) {
	unlock := m.locks.Lock(tableKey(tableID))
	defer unlock()

	if partySize < 1 {
		partySize = 1
	}

	var (
		session     *models.TableSession
		wasOccupied bool
	)
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		table, err := tx.GetTable(ctx, tableID)
		if err != nil {
			return fmt.Errorf("table %d: %w", tableID, err)
		}
		if table.RestaurantID != restaurantID {
			return fmt.Errorf("table %d in restaurant %d: %w", tableID, restaurantID, ErrNotFound)
		}
		wasOccupied = table.Occupied

		existing, err := tx.FindOpenSessionForTable(ctx, tableID, true)
		switch {
		case err == nil:
			return &TableOccupiedError{TableID: tableID, SessionID: existing.ID}
		case !errors.Is(err, database.ErrNotFound):
			return fmt.Errorf("failed to check open session: %w", err)
		}

		session = &models.TableSession{
			TableID:      tableID,
			RestaurantID: restaurantID,
			PartySize:    partySize,
			Status:       models.SessionWaiting,
			StartTime:    m.Clock(),
		}
		if err := tx.CreateSession(ctx, session); err != nil {
			if errors.Is(err, database.ErrDuplicateKey) {
				return &TableOccupiedError{TableID: tableID}
			}
			return fmt.Errorf("failed to create session: %w", err)
		}
		if !table.Occupied {
			if err := tx.SetTableOccupied(ctx, tableID, true); err != nil {
				return fmt.Errorf("failed to mark table occupied: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.sessionsCreated.Add(1)
	utils.InfoLogger.WithFields(logrus.Fields{
		"session_id":    session.ID,
		"table_id":      tableID,
		"restaurant_id": restaurantID,
	}).Info("Session created")

	if !wasOccupied {
		m.publisher.Publish(events.New(events.TypeTableStatus,
			events.RestaurantScope(restaurantID),
			events.TableStatusPayload{TableID: tableID, Occupied: true}))
	}
	return session, nil
}

// JoinOrCreateSession returns the table's open session, creating it when
// there is none. created reports which happened. A session that closes
// between the failed create and the lookup is retried once.
func (m *SessionManager) JoinOrCreateSession(ctx context.Context, tableID, restaurantID uint, partySize int) (session *models.TableSession, created bool, err error) {
	for attempt := 0; ; attempt++ {
		session, err = m.CreateSession(ctx, tableID, restaurantID, partySize)
		if err == nil {
			return session, true, nil
		}
		if !errors.Is(err, ErrTableAlreadyOccupied) {
			return nil, false, err
		}

		existing, err := m.store.FindOpenSessionForTable(ctx, tableID, false)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, database.ErrNotFound) || attempt > 0 {
			return nil, false, fmt.Errorf("failed to load open session of table %d: %w", tableID, err)
		}
	}
}

// AddCustomer registers a diner in an open session. The first diner becomes
// the main customer.
func (m *SessionManager) AddCustomer(ctx context.Context, sessionID uint, name string, email, phone *string) (*models.Customer, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()

	var customer *models.Customer
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		if !session.IsOpen() {
			return fmt.Errorf("session %d is %s: %w", sessionID, session.Status, ErrSessionNotOpen)
		}
		count, err := tx.CountCustomers(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to count customers: %w", err)
		}

		customer = &models.Customer{
			SessionID:      sessionID,
			Name:           name,
			Email:          email,
			Phone:          phone,
			PaymentStatus:  models.CustomerPaymentPending,
			IsMainCustomer: count == 0,
		}
		if err := tx.CreateCustomer(ctx, customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"customer_id": customer.ID,
		"main":        customer.IsMainCustomer,
	}).Info("Customer joined session")
	return customer, nil
}

// TransitionSessionStatus applies a manual status change. Closing a session
// stamps its end time; cancelling it also cancels its pending bills.
func (m *SessionManager) TransitionSessionStatus(ctx context.Context, sessionID uint, status string) (*models.TableSession, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()

	var session *models.TableSession
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		var err error
		session, err = tx.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		if !CanTransitionSession(session.Status, status) {
			return &TransitionError{
				Entity:  "session",
				From:    session.Status,
				To:      status,
				Allowed: NextSessionStatuses(session.Status),
			}
		}

		fields := map[string]interface{}{"status": status}
		if status == models.SessionCompleted || status == models.SessionCancelled {
			end := m.Clock()
			fields["end_time"] = end
			session.EndTime = &end
		}
		if status == models.SessionCancelled {
			if _, err := tx.CancelPendingBills(ctx, sessionID, false); err != nil {
				return fmt.Errorf("failed to cancel pending bills: %w", err)
			}
		}
		if err := tx.UpdateSession(ctx, sessionID, fields); err != nil {
			return fmt.Errorf("failed to update session status: %w", err)
		}
		session.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"status":     status,
	}).Info("Session status changed")

	m.ledger.InvalidateSessionCache(sessionID)
	if !session.IsOpen() {
		if status == models.SessionCancelled {
			m.metrics.sessionsCancelled.Add(1)
		} else {
			m.metrics.sessionsCompleted.Add(1)
		}
		m.afterClose(ctx, session)
	} else {
		m.publishSessionStatus(session)
	}
	return session, nil
}

// EvaluatePaymentProgress completes the session once nothing is left to pay.
// Checks run in order: no orders, a paid combined bill, every customer
// holding a paid bill. Terminal sessions come back unchanged.
func (m *SessionManager) EvaluatePaymentProgress(ctx context.Context, sessionID uint) (*models.TableSession, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()
	return m.evaluateLocked(ctx, sessionID)
}

func (m *SessionManager) evaluateLocked(ctx context.Context, sessionID uint) (*models.TableSession, error) {
	var (
		session   *models.TableSession
		completed bool
	)
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		var err error
		session, err = tx.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		if !session.IsOpen() {
			return nil
		}

		check, combinedPaid, err := completionCheck(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !check.CanComplete {
			return nil
		}

		if combinedPaid {
			if _, err := tx.CancelPendingBills(ctx, sessionID, true); err != nil {
				return fmt.Errorf("failed to cancel superseded bills: %w", err)
			}
			if err := tx.SetCustomerPaymentStatus(ctx, sessionID, nil, models.CustomerPaymentPaid); err != nil {
				return fmt.Errorf("failed to mark customers paid: %w", err)
			}
		}

		end := m.Clock()
		if err := tx.UpdateSession(ctx, sessionID, map[string]interface{}{
			"status":   models.SessionCompleted,
			"end_time": end,
		}); err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}
		session.Status = models.SessionCompleted
		session.EndTime = &end
		completed = true

		utils.InfoLogger.WithFields(logrus.Fields{
			"session_id": sessionID,
			"reason":     check.Reason,
		}).Info("Session completed")
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.ledger.InvalidateSessionCache(sessionID)
	if _, err := m.ledger.CalculateSessionTotals(ctx, sessionID); err != nil {
		utils.ErrorLogger.Errorf("Failed to recompute totals of session %d: %v", sessionID, err)
	}

	if completed {
		m.metrics.sessionsCompleted.Add(1)
		m.afterClose(ctx, session)
	}
	return m.store.GetSession(ctx, sessionID)
}

// CanCompleteSession reports, without writing, whether evaluation would
// close the session now.
func (m *SessionManager) CanCompleteSession(ctx context.Context, sessionID uint) (CompletionCheck, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return CompletionCheck{}, fmt.Errorf("session %d: %w", sessionID, err)
	}
	if !session.IsOpen() {
		return CompletionCheck{Reason: "session is already " + session.Status}, nil
	}
	check, _, err := completionCheck(ctx, m.store, sessionID)
	return check, err
}

func completionCheck(ctx context.Context, store *database.Store, sessionID uint) (CompletionCheck, bool, error) {
	orders, err := store.CountSessionOrders(ctx, sessionID)
	if err != nil {
		return CompletionCheck{}, false, fmt.Errorf("failed to count orders: %w", err)
	}
	if orders == 0 {
		return CompletionCheck{CanComplete: true, Reason: "session has no orders"}, false, nil
	}

	combinedPaid, err := store.HasPaidCombinedBill(ctx, sessionID)
	if err != nil {
		return CompletionCheck{}, false, fmt.Errorf("failed to check combined bill: %w", err)
	}
	if combinedPaid {
		return CompletionCheck{CanComplete: true, Reason: "combined bill paid"}, true, nil
	}

	rows, err := store.CustomerBillStatuses(ctx, sessionID)
	if err != nil {
		return CompletionCheck{}, false, fmt.Errorf("failed to load customer bills: %w", err)
	}
	pending := 0
	for _, r := range rows {
		if !r.Paid() {
			pending++
		}
	}
	if len(rows) > 0 && pending == 0 {
		return CompletionCheck{CanComplete: true, Reason: "all customers paid"}, false, nil
	}
	if len(rows) == 0 {
		return CompletionCheck{Reason: "session has no customers"}, false, nil
	}
	return CompletionCheck{
		Reason:       fmt.Sprintf("%d of %d customers have not paid", pending, len(rows)),
		BillsPending: pending,
	}, false, nil
}

// ForceCompleteSession closes the session regardless of payments and
// cancels its pending bills. A completed session is returned as is; a
// cancelled one keeps its status.
func (m *SessionManager) ForceCompleteSession(ctx context.Context, sessionID uint, reason string) (*models.TableSession, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()
	return m.forceCompleteLocked(ctx, sessionID, reason)
}

func (m *SessionManager) forceCompleteLocked(ctx context.Context, sessionID uint, reason string) (*models.TableSession, error) {
	var (
		session   *models.TableSession
		closed    bool
		cancelled int64
	)
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		var err error
		session, err = tx.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		if session.Status == models.SessionCompleted {
			return nil
		}

		if cancelled, err = tx.CancelPendingBills(ctx, sessionID, false); err != nil {
			return fmt.Errorf("failed to cancel pending bills: %w", err)
		}
		if !session.IsOpen() {
			return nil
		}

		end := m.Clock()
		if err := tx.UpdateSession(ctx, sessionID, map[string]interface{}{
			"status":       models.SessionCompleted,
			"end_time":     end,
			"close_reason": reason,
		}); err != nil {
			return fmt.Errorf("failed to force complete session: %w", err)
		}
		session.Status = models.SessionCompleted
		session.EndTime = &end
		session.CloseReason = reason
		closed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if closed || cancelled > 0 {
		utils.InfoLogger.WithFields(logrus.Fields{
			"session_id":      sessionID,
			"reason":          reason,
			"bills_cancelled": cancelled,
		}).Warn("Session force completed")
		m.ledger.InvalidateSessionCache(sessionID)
		if _, err := m.ledger.CalculateSessionTotals(ctx, sessionID); err != nil {
			utils.ErrorLogger.Errorf("Failed to recompute totals of session %d: %v", sessionID, err)
		}
	}
	if closed {
		m.metrics.sessionsForceCompleted.Add(1)
		m.afterClose(ctx, session)
	}
	return session, nil
}

// RequestBill flags the session and calls a waiter to the table.
func (m *SessionManager) RequestBill(ctx context.Context, sessionID uint) (*models.TableSession, error) {
	unlock := m.lockSession(sessionID)
	defer unlock()

	var (
		session *models.TableSession
		caller  string
	)
	err := m.store.Transaction(ctx, func(tx *database.Store) error {
		var err error
		session, err = tx.GetSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("session %d: %w", sessionID, err)
		}
		if !session.IsOpen() {
			return fmt.Errorf("session %d is %s: %w", sessionID, session.Status, ErrSessionNotOpen)
		}

		customers, err := tx.ListCustomers(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to list customers: %w", err)
		}
		for _, c := range customers {
			if c.IsMainCustomer {
				caller = c.Name
				break
			}
		}

		at := m.Clock()
		if err := tx.UpdateSession(ctx, sessionID, map[string]interface{}{
			"bill_requested":    true,
			"bill_requested_at": at,
		}); err != nil {
			return fmt.Errorf("failed to flag bill request: %w", err)
		}
		session.BillRequested = true
		session.BillRequestedAt = &at

		sid := sessionID
		return tx.CreateNotification(ctx, &models.Notification{
			RestaurantID: session.RestaurantID,
			TableID:      session.TableID,
			SessionID:    &sid,
			CustomerName: caller,
			RequestType:  models.RequestBill,
		})
	})
	if err != nil {
		return nil, err
	}

	m.publisher.Publish(events.New(events.TypeWaiterRequested,
		events.TableScope(session.RestaurantID, session.TableID),
		events.WaiterRequestPayload{
			TableID:      session.TableID,
			CustomerName: caller,
			RequestType:  models.RequestBill,
			Timestamp:    *session.BillRequestedAt,
		}))
	return session, nil
}

// CallWaiter records a diner's request for staff and notifies the floor.
func (m *SessionManager) CallWaiter(ctx context.Context, restaurantID, tableID uint, customerName, requestType string) (*models.Notification, error) {
	if requestType == "" {
		requestType = models.RequestAssistance
	}

	table, err := m.store.GetTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("table %d: %w", tableID, err)
	}
	if table.RestaurantID != restaurantID {
		return nil, fmt.Errorf("table %d in restaurant %d: %w", tableID, restaurantID, ErrNotFound)
	}

	n := &models.Notification{
		RestaurantID: restaurantID,
		TableID:      tableID,
		CustomerName: customerName,
		RequestType:  requestType,
		Metadata:     map[string]interface{}{"tableNumber": table.Number},
	}
	session, err := m.store.FindOpenSessionForTable(ctx, tableID, false)
	switch {
	case err == nil:
		n.SessionID = &session.ID
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("failed to load open session: %w", err)
	}
	if err := m.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to save waiter call: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"restaurant_id": restaurantID,
		"table_id":      tableID,
		"request_type":  requestType,
	}).Info("Waiter called")

	m.publisher.Publish(events.New(events.TypeWaiterRequested,
		events.TableScope(restaurantID, tableID),
		events.WaiterRequestPayload{
			TableID:      tableID,
			CustomerName: customerName,
			RequestType:  requestType,
			Timestamp:    n.CreatedAt,
		}))
	return n, nil
}

// afterClose runs once a session reaches a terminal status.
func (m *SessionManager) afterClose(ctx context.Context, session *models.TableSession) {
	if _, err := m.occupancy.SyncTableOccupancy(ctx, session.RestaurantID); err != nil {
		utils.ErrorLogger.Errorf("Failed to sync occupancy for restaurant %d: %v", session.RestaurantID, err)
	}
	m.publishSessionStatus(session)
}

func (m *SessionManager) publishSessionStatus(session *models.TableSession) {
	m.publisher.Publish(events.New(events.TypeSessionStatus,
		events.TableScope(session.RestaurantID, session.TableID),
		events.SessionStatusPayload{
			SessionID:   session.ID,
			TableID:     session.TableID,
			Status:      session.Status,
			EndTime:     session.EndTime,
			CloseReason: session.CloseReason,
		}))
}
