// Package syncx provides the per-user locking primitive behind the
// reconciler's one hard concurrency invariant: never two live daemon calls
// for the same identity tag.
package syncx

import "sync"

// KeyedMutex serializes critical sections per int64 key. Mutexes are created
// lazily and kept for the lifetime of the process; the key space here is
// bounded by the user population, so no eviction is needed.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the mutex for key, blocking while another holder has it.
func (k *KeyedMutex) Lock(key int64) {
	k.get(key).Lock()
}

// Unlock releases the mutex for key.
func (k *KeyedMutex) Unlock(key int64) {
	k.get(key).Unlock()
}

func (k *KeyedMutex) get(key int64) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}
