package services

import (
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalsCache(t *testing.T) {
	c := newTotalsCache(50 * time.Millisecond)

	assert.Nil(t, c.Get(1))

	c.Set(1, Totals{SessionID: 1}, ttlcache.DefaultTTL)
	item := c.Get(1)
	require.NotNil(t, item)
	assert.Equal(t, uint(1), item.Value().SessionID)

	assert.Eventually(t, func() bool { return c.Get(1) == nil },
		time.Second, 10*time.Millisecond, "expires after ttl")

	c.Set(2, Totals{SessionID: 2}, ttlcache.DefaultTTL)
	c.Delete(2)
	assert.Nil(t, c.Get(2))
}

func TestLedger_PruneCache(t *testing.T) {
	env := newTestEnv(t)
	ledger := NewSessionLedger(env.store, nil, 20*time.Millisecond)
	ledger.cache.Set(1, Totals{SessionID: 1}, ttlcache.DefaultTTL)
	require.Equal(t, 1, ledger.cache.Len())

	time.Sleep(40 * time.Millisecond)
	ledger.PruneCache()
	assert.Zero(t, ledger.cache.Len())
}
