package watchmux

import (
	"sync"

	"github.com/horockey/docstream/internal/model"
)

// Subscription is one watcher's independent view of a shared per-key feed.
type Subscription struct {
	ch      *sharedChannel
	updates chan model.Result[model.Document]

	cancelOnce sync.Once
	closeOnce  sync.Once
}

func (sub *Subscription) Updates() <-chan model.Result[model.Document] {
	return sub.updates
}

// Cancel stops this view only. It never touches the shared reference
// count: the matching Registry.Release call is still required.
func (sub *Subscription) Cancel() {
	sub.cancelOnce.Do(func() {
		sub.ch.mu.Lock()
		delete(sub.ch.subs, sub)
		sub.ch.mu.Unlock()

		sub.close()
	})
}

func (sub *Subscription) close() {
	sub.closeOnce.Do(func() {
		close(sub.updates)
	})
}
