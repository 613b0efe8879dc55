package services

import (
	"sync"
	"testing"
	"time"

	"github.com/moby/locker"
	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerialisesSameKey(t *testing.T) {
	k := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("table:1")
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.ErrorIs(t, k.locks.Unlock("table:1"), locker.ErrNoSuchLock, "released keys are forgotten")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock(tableKey(1))
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock(sessionKey(1))
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}
