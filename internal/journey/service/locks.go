package service

import "sync"

// keyedLocks serializes submissions per CRN so concurrent writers cannot
// both read the same stage pointer and double-advance a journey.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*crnLock
}

type crnLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*crnLock)}
}

// Lock acquires the mutex for the key and returns its unlock function.
// Entries are reference-counted and removed when the last holder releases.
func (k *keyedLocks) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &crnLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
