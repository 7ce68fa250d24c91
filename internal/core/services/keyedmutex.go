package services

import "sync"

// keyedMutex serialises work per key. Entries are reference counted and
// dropped once no goroutine holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	e := k.acquire(key)
	e.mu.Lock()
	return func() { k.release(key, e) }
}

// TryLock takes key if it is free. The unlock function is nil when it is not.
func (k *keyedMutex) TryLock(key string) (func(), bool) {
	e := k.acquire(key)
	if !e.mu.TryLock() {
		k.mu.Lock()
		k.drop(key, e)
		k.mu.Unlock()
		return nil, false
	}
	return func() { k.release(key, e) }, true
}

func (k *keyedMutex) acquire(key string) *keyedEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *keyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.mu.Unlock()
	k.drop(key, e)
}

func (k *keyedMutex) drop(key string, e *keyedEntry) {
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}
