package lock

import (
	"context"
	"sync"
)

// Unlock releases a lock obtained from a Locker. It must be called exactly once.
type Unlock func()

// KeyedMutex is an in-process mutual exclusion keyed by string. Entries are
// reference counted and removed once nobody holds or waits on them, so the
// map does not grow with the number of distinct keys ever seen.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free or ctx is done.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (Unlock, error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &keyedEntry{sem: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				m.release(key, e)
			})
		}, nil
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) release(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

// held returns the number of keys currently held or waited on.
func (m *KeyedMutex) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
