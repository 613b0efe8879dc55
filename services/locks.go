package services

import (
	"strconv"

	"github.com/moby/locker"
)

// keyedMutex hands out one mutex per key. locker drops keys nobody holds.
type keyedMutex struct {
	locks *locker.Locker
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: locker.New()}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.locks.Lock(key)
	return func() {
		_ = k.locks.Unlock(key)
	}
}

func tableKey(id uint) string {
	return "table:" + strconv.FormatUint(uint64(id), 10)
}

func sessionKey(id uint) string {
	return "session:" + strconv.FormatUint(uint64(id), 10)
}
