package action

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// KeyedMutex serializes work per identifier. Holders of different keys never contend.
// The zero value is ready to use.
type KeyedMutex struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

// Lock waits until key is free or ctx is done. On success it returns the function
// that releases the key; calling it more than once is safe.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (unlock func(), err error) {
	l := m.acquireRef(key)

	if err := l.sem.Acquire(ctx, 1); err != nil {
		m.releaseRef(key, l)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(1)
			m.releaseRef(key, l)
		})
	}, nil
}

// Len returns the number of keys currently held or waited on.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func (m *KeyedMutex) acquireRef(key string) *keyLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys == nil {
		m.keys = make(map[string]*keyLock)
	}
	l, ok := m.keys[key]
	if !ok {
		l = &keyLock{sem: semaphore.NewWeighted(1)}
		m.keys[key] = l
	}
	l.refs++
	return l
}

func (m *KeyedMutex) releaseRef(key string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(m.keys, key)
	}
}
