// Package keyfifo serializes asynchronous actions per key:
// actions for one key run strictly in submission order, never overlapping,
// while independent keys stay unordered relative to each other.
package keyfifo

import "sync"

// Executor holds per-key tails. The tail of a key settles when the
// last submitted action for it has finished, success or failure alike.
//
// Calling WithLock for the same key from inside a running action
// deadlocks: the inner call waits on a tail the outer one must settle.
// Nesting with a different key is fine.
type Executor[K comparable] struct {
	mu       sync.Mutex
	tails    map[K]*tail
	disposed bool
}

type tail struct {
	settled chan struct{}
}

func New[K comparable]() *Executor[K] {
	return &Executor[K]{
		tails: map[K]*tail{},
	}
}

// Dispose stops chaining: subsequent WithLock calls run immediately,
// possibly overlapping still-in-flight actions. In-flight actions are
// neither canceled nor awaited. Idempotent.
func (ex *Executor[K]) Dispose() {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if ex.disposed {
		return
	}
	ex.disposed = true
	ex.tails = map[K]*tail{}
}

// PendingKeys reports how many keys currently have an unsettled tail.
func (ex *Executor[K]) PendingKeys() int {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return len(ex.tails)
}

// enqueue registers a new tail for key and returns the predecessor's
// settle channel (nil if the key is new or the executor is disposed)
// plus the settle func for the registered tail.
func (ex *Executor[K]) enqueue(key K) (<-chan struct{}, func()) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if ex.disposed {
		return nil, func() {}
	}

	var prev chan struct{}
	if t, found := ex.tails[key]; found {
		prev = t.settled
	}

	t := &tail{settled: make(chan struct{})}
	ex.tails[key] = t

	return prev, func() {
		close(t.settled)

		ex.mu.Lock()
		defer ex.mu.Unlock()
		// Prune only if no later action re-chained on this tail,
		// so idle keys do not accumulate.
		if cur, found := ex.tails[key]; found && cur == t {
			delete(ex.tails, key)
		}
	}
}
