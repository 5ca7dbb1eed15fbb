package http_controller

import (
	"sync"

	"github.com/horockey/docstream/internal/model"
)

const subBufSize = 32

// watchHub fans document changes out to the SSE handlers of a key.
type watchHub struct {
	mu   sync.Mutex
	subs map[string]map[chan model.Document]struct{}
}

func newWatchHub() *watchHub {
	return &watchHub{
		subs: map[string]map[chan model.Document]struct{}{},
	}
}

func (hub *watchHub) subscribe(key string) chan model.Document {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	ch := make(chan model.Document, subBufSize)
	if hub.subs[key] == nil {
		hub.subs[key] = map[chan model.Document]struct{}{}
	}
	hub.subs[key][ch] = struct{}{}

	return ch
}

func (hub *watchHub) unsubscribe(key string, ch chan model.Document) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	delete(hub.subs[key], ch)
	if len(hub.subs[key]) == 0 {
		delete(hub.subs, key)
	}
}

func (hub *watchHub) broadcast(key string, doc model.Document) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range hub.subs[key] {
		// Stalled consumers drop updates instead of wedging writers.
		select {
		case ch <- doc.Clone():
		default:
		}
	}
}
