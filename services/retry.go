package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/yeremiapane/dinein-app/database"
	"github.com/yeremiapane/dinein-app/utils"
)

// readRetry retries idempotent reads that failed with a transient store
// error. Writes never go through it.
type readRetry struct {
	attempts int
	base     time.Duration
}

var defaultReadRetry = readRetry{attempts: 3, base: 50 * time.Millisecond}

func (r readRetry) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.base
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.attempts-1)), ctx)
}

func (r readRetry) do(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err != nil && !database.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, r.policy(ctx))
	if err != nil && attempt > 1 && database.IsTransient(err) {
		utils.ErrorLogger.Warnf("%s failed after %d attempts: %v", op, attempt, err)
	}
	return err
}
