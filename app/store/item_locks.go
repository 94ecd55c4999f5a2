package store

import "sync"

// ItemLocks serializes store access per item. The backing store has no
// transactions, so the read-compare-append cycle for one item must not
// interleave with another writer for the same item; writes for
// different items proceed concurrently.
type ItemLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewItemLocks() *ItemLocks {
	return &ItemLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-item mutex and returns its release function.
func (l *ItemLocks) Lock(itemID string) func() {
	l.mu.Lock()
	m, ok := l.locks[itemID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[itemID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
