package locks

import (
	"context"
	"sync"
)

// MemoryLocker is the in-process Locker. It is sufficient for a single
// replica; multi-replica deployments need the Redis locker instead.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewMemoryLocker creates a new in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*keyLock),
	}
}

// Acquire blocks until the per-key lock is held or ctx is done.
func (m *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()

	entry, ok := m.locks[key]
	if !ok {
		entry = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = entry
	}

	entry.refs++
	m.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		m.put(key, entry)

		return nil, ctx.Err()
	}

	var once sync.Once

	release := func() {
		once.Do(func() {
			<-entry.ch
			m.put(key, entry)
		})
	}

	return release, nil
}

// put drops one reference and evicts the entry once nobody waits on it,
// keeping the map from growing with every instance id ever locked.
func (m *MemoryLocker) put(key string, entry *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
}
