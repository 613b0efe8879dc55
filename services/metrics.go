package services

import "sync/atomic"

// Metrics counts session engine outcomes since start.
type Metrics struct {
	sessionsCreated        atomic.Int64
	sessionsCompleted      atomic.Int64
	sessionsCancelled      atomic.Int64
	sessionsForceCompleted atomic.Int64
	sessionsReaped         atomic.Int64
	ordersCreated          atomic.Int64
	billsPaid              atomic.Int64
}

type MetricsSnapshot struct {
	SessionsCreated        int64 `json:"sessionsCreated"`
	SessionsCompleted      int64 `json:"sessionsCompleted"`
	SessionsCancelled      int64 `json:"sessionsCancelled"`
	SessionsForceCompleted int64 `json:"sessionsForceCompleted"`
	SessionsReaped         int64 `json:"sessionsReaped"`
	OrdersCreated          int64 `json:"ordersCreated"`
	BillsPaid              int64 `json:"billsPaid"`
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		SessionsCreated:        m.sessionsCreated.Load(),
		SessionsCompleted:      m.sessionsCompleted.Load(),
		SessionsCancelled:      m.sessionsCancelled.Load(),
		SessionsForceCompleted: m.sessionsForceCompleted.Load(),
		SessionsReaped:         m.sessionsReaped.Load(),
		OrdersCreated:          m.ordersCreated.Load(),
		BillsPaid:              m.billsPaid.Load(),
	}
}
