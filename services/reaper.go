package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/models"
	"github.com/yeremiapane/dinein-app/utils"
)

const (
	DefaultReaperSchedule = "@every 10m"
	DefaultReaperTimeout  = 30 * time.Minute
	DefaultReaperBatch    = 200
	reaperPassTimeout     = 2 * time.Minute
	abandonedReason       = "abandoned"
)

// ReapResult summarises one cleanup pass.
type ReapResult struct {
	Scanned        int `json:"scanned"`
	Deleted        int `json:"deleted"`
	ForceCompleted int `json:"forceCompleted"`
}

// Reaper closes sessions left open past Timeout. Empty sessions are deleted
// outright; sessions with orders are force completed so their history
// stays.
type Reaper struct {
	sessions  *SessionManager
	Schedule  string
	Timeout   time.Duration
	BatchSize int
	Clock     func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewReaper(sessions *SessionManager) *Reaper {
	return &Reaper{
		sessions:  sessions,
		Schedule:  DefaultReaperSchedule,
		Timeout:   DefaultReaperTimeout,
		BatchSize: DefaultReaperBatch,
		Clock:     time.Now,
	}
}

// Start schedules RunOnce. Overlapping passes are skipped.
func (r *Reaper) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}

	logger := cron.PrintfLogger(utils.InfoLogger)
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(r.Schedule, r.tick); err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", r.Schedule, err)
	}
	c.Start()
	r.cron = c

	utils.InfoLogger.WithFields(logrus.Fields{
		"schedule": r.Schedule,
		"timeout":  r.Timeout.String(),
	}).Info("Session reaper started")
	return nil
}

// Stop halts scheduling and waits for a running pass to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	utils.InfoLogger.Info("Session reaper stopped")
}

func (r *Reaper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), reaperPassTimeout)
	defer cancel()
	if _, err := r.RunOnce(ctx); err != nil {
		utils.ErrorLogger.Errorf("Session cleanup pass failed, retrying next tick: %v", err)
	}
}

// RunOnce performs one cleanup pass. Candidates are read without locks and
// each one is re-checked under its session lock before anything is changed.
// Failures of single sessions are collected and do not stop the pass.
func (r *Reaper) RunOnce(ctx context.Context) (ReapResult, error) {
	var result ReapResult
	cutoff := r.Clock().Add(-r.Timeout)

	candidates, err := r.sessions.store.ListStaleOpenSessions(ctx, cutoff, r.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	result.Scanned = len(candidates)

	var errs *multierror.Error
	restaurants := make(map[uint]struct{})
	for _, c := range candidates {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}
		outcome, err := r.reap(ctx, c.ID, cutoff)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("session %d: %w", c.ID, err))
			continue
		}
		switch outcome {
		case reapDeleted:
			result.Deleted++
			restaurants[c.RestaurantID] = struct{}{}
		case reapForced:
			result.ForceCompleted++
		}
	}

	r.sessions.ledger.PruneCache()

	// Force completion syncs its own restaurant; deletions do not.
	for rid := range restaurants {
		if _, err := r.sessions.occupancy.SyncTableOccupancy(ctx, rid); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if result.Deleted > 0 || result.ForceCompleted > 0 {
		utils.InfoLogger.WithFields(logrus.Fields{
			"scanned":         result.Scanned,
			"deleted":         result.Deleted,
			"force_completed": result.ForceCompleted,
		}).Info("Abandoned sessions cleaned up")
	}
	return result, errs.ErrorOrNil()
}

type reapOutcome int

const (
	reapSkipped reapOutcome = iota
	reapDeleted
	reapForced
)

func (r *Reaper) reap(ctx context.Context, sessionID uint, cutoff time.Time) (reapOutcome, error) {
	m := r.sessions
	unlock := m.lockSession(sessionID)
	defer unlock()

	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return reapSkipped, err
	}
	if !session.IsOpen() || !session.StartTime.Before(cutoff) {
		return reapSkipped, nil
	}

	orders, err := m.store.CountSessionOrders(ctx, sessionID)
	if err != nil {
		return reapSkipped, err
	}
	if orders > 0 {
		reason := fmt.Sprintf("%s: open longer than %s", abandonedReason, r.Timeout)
		if _, err := m.forceCompleteLocked(ctx, sessionID, reason); err != nil {
			return reapSkipped, err
		}
		m.metrics.sessionsReaped.Add(1)
		return reapForced, nil
	}

	err = m.store.Transaction(ctx, func(tx *database.Store) error {
		if _, err := tx.DeleteBillsBySession(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete bills: %w", err)
		}
		if _, err := tx.DeleteCustomersBySession(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete customers: %w", err)
		}
		return tx.DeleteSession(ctx, sessionID)
	})
	if err != nil {
		return reapSkipped, err
	}

	m.ledger.InvalidateSessionCache(sessionID)
	m.metrics.sessionsReaped.Add(1)
	utils.InfoLogger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"table_id":   session.TableID,
		"started":    session.StartTime.Format(time.RFC3339),
	}).Info("Empty abandoned session deleted")

	m.publishSessionStatus(&models.TableSession{
		ID:           sessionID,
		TableID:      session.TableID,
		RestaurantID: session.RestaurantID,
		Status:       models.SessionCancelled,
		CloseReason:  abandonedReason,
	})
	return reapDeleted, nil
}
