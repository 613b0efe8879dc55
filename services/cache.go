package services

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// newTotalsCache memoises session totals. Writers of orders or bills delete
// the entry; expiry only bounds how long a missed invalidation can go
// unnoticed, so hits do not extend it.
func newTotalsCache(ttl time.Duration) *ttlcache.Cache[uint, Totals] {
	return ttlcache.New[uint, Totals](
		ttlcache.WithTTL[uint, Totals](ttl),
		ttlcache.WithDisableTouchOnHit[uint, Totals](),
	)
}
