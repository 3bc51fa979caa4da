package service

import (
	"fmt"
	"sync"
)

// pairLocks serializes activations per (user, plan) pair in-process, in front
// of the row lock the ledger takes. Entries are reference-counted and removed
// when the last holder releases, so the map does not grow with user count.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*pairLock)}
}

// Lock acquires the lock for the pair and returns its release func.
func (p *pairLocks) Lock(userID, planID int64) func() {
	key := fmt.Sprintf("%d:%d", userID, planID)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			p.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(p.locks, key)
			}
			p.mu.Unlock()
		})
	}
}
