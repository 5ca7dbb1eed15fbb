package watchmux

import (
	"context"
	"sync"

	"github.com/horockey/docstream/internal/model"
)

// sharedChannel is the per-key record: one backend subscription,
// one last-value cell, one reference count. At most one exists per key.
type sharedChannel struct {
	key    string
	cancel context.CancelFunc

	// refs is guarded by Registry.mu.
	refs int

	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	last     model.Result[model.Document]
	hasLast  bool
	terminal bool
	disposed bool
}

// emit updates the shared last-value cell and fans res out to every
// attached view. Sends never block: a view whose consumer stopped
// reading gets its oldest buffered update evicted so the latest state
// still comes through and the other views of the key stay live.
func (ch *sharedChannel) emit(res model.Result[model.Document], terminal bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.disposed {
		return
	}

	ch.last = res
	ch.hasLast = true
	if terminal {
		ch.terminal = true
	}

	for sub := range ch.subs {
		select {
		case sub.updates <- res:
			continue
		default:
		}

		// Full view buffer: make room by evicting the oldest update.
		select {
		case <-sub.updates:
		default:
		}
		select {
		case sub.updates <- res:
		default:
		}
	}
}

// dispose cancels the backend subscription, drops the last-value cell
// and closes every attached view. Idempotent.
func (ch *sharedChannel) dispose() {
	ch.cancel()

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.disposed {
		return
	}
	ch.disposed = true
	ch.last = model.Result[model.Document]{}
	ch.hasLast = false

	for sub := range ch.subs {
		delete(ch.subs, sub)
		sub.close()
	}
}
