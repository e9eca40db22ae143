package services

import (
	"strconv"
	"sync"
)

// keyedMutex serializes all mutations of one entity (a user's presence
// record, a message's delivery state) across sessions. Entries are
// reference-counted and dropped when the last holder unlocks.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

// Lock acquires the lock for key and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

// LockUser acquires the per-user lock.
func (k *keyedMutex) LockUser(userID uint) func() {
	return k.Lock("u:" + strconv.FormatUint(uint64(userID), 10))
}
