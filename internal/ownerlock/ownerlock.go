// Package ownerlock provides the single logical lock per shopper that
// serializes cart mutation and the checkout lifecycle. Operations for
// different owners never contend.
package ownerlock

import "sync"

type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the owner's lock is held and returns the release
// function. Locks are created lazily on first use.
func (r *Registry) Acquire(ownerID string) (release func()) {
	r.mu.Lock()
	l, ok := r.locks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[ownerID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
