// Package locker serializes work per key inside one process.
// Ledger mutations on an invoice take the invoice's lock before opening the database
// transaction, so concurrent requests on the same instance queue up instead of
// contending on the row lock.
package locker

import (
	"context"
	"sync"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex hands out one mutex per key. Entries are dropped once nobody holds or waits on them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedMutex creates an empty KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock blocks until the lock for key is held or ctx is done.
// On success the returned func releases the lock and must be called exactly once.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Len returns the number of keys currently held or waited on
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
