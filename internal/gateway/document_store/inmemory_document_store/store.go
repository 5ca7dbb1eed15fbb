package inmemory_document_store

import (
	"context"
	"sync"
	"time"

	"github.com/horockey/docstream/internal/gateway/document_store"
	"github.com/horockey/docstream/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

const watcherBufSize = 32

var _ document_store.Gateway = &inmemoryDocumentStore{}

// inmemoryDocumentStore keeps documents in process memory and fans
// writes out to per-key watch feeds. Used as embedded backend and as
// the store under test.
type inmemoryDocumentStore struct {
	mu       sync.RWMutex
	docs     map[string]model.Document
	watchers map[string]map[chan model.WatchEvent]struct{}
	metrics  *metrics
}

func New() *inmemoryDocumentStore {
	store := inmemoryDocumentStore{
		docs:     map[string]model.Document{},
		watchers: map[string]map[chan model.WatchEvent]struct{}{},
	}
	store.metrics = newMetrics(&store)
	return &store
}

func (store *inmemoryDocumentStore) Metrics() []prometheus.Collector {
	return store.metrics.list()
}

func (store *inmemoryDocumentStore) Read(_ context.Context, key string) (res model.Document, resErr error) {
	defer func(ts time.Time) {
		store.metrics.handleTimeHist.Observe(float64(time.Since(ts)))
		store.metrics.observe(resErr)
	}(time.Now())

	store.mu.RLock()
	defer store.mu.RUnlock()

	doc, found := store.docs[key]
	if !found {
		return nil, model.KeyNotFoundError{Key: key}
	}

	return doc.Clone(), nil
}

func (store *inmemoryDocumentStore) Write(_ context.Context, key string, doc model.Document) (res model.Document, resErr error) {
	defer func(ts time.Time) {
		store.metrics.handleTimeHist.Observe(float64(time.Since(ts)))
		store.metrics.observe(resErr)
	}(time.Now())

	stored := doc.Clone()

	store.mu.Lock()
	store.docs[key] = stored
	store.broadcastLocked(key, stored.Clone())
	store.mu.Unlock()

	return stored.Clone(), nil
}

func (store *inmemoryDocumentStore) Delete(_ context.Context, key string) (resErr error) {
	defer func(ts time.Time) {
		store.metrics.handleTimeHist.Observe(float64(time.Since(ts)))
		store.metrics.observe(resErr)
	}(time.Now())

	store.mu.Lock()
	delete(store.docs, key)
	store.broadcastLocked(key, model.Document{})
	store.mu.Unlock()

	return nil
}

func (store *inmemoryDocumentStore) Watch(ctx context.Context, key string) (<-chan model.WatchEvent, error) {
	feed := make(chan model.WatchEvent, watcherBufSize)

	store.mu.Lock()
	if store.watchers[key] == nil {
		store.watchers[key] = map[chan model.WatchEvent]struct{}{}
	}
	store.watchers[key][feed] = struct{}{}
	store.metrics.watchersGauge.Inc()
	store.mu.Unlock()

	go func() {
		<-ctx.Done()

		store.mu.Lock()
		delete(store.watchers[key], feed)
		if len(store.watchers[key]) == 0 {
			delete(store.watchers, key)
		}
		store.metrics.watchersGauge.Dec()
		store.mu.Unlock()

		close(feed)
	}()

	return feed, nil
}

// WatcherCount reports live feeds for key. Test hook.
func (store *inmemoryDocumentStore) WatcherCount(key string) int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.watchers[key])
}

func (store *inmemoryDocumentStore) broadcastLocked(key string, doc model.Document) {
	for feed := range store.watchers[key] {
		// Stalled watchers drop updates instead of wedging writers.
		select {
		case feed <- model.WatchEvent{Doc: doc}:
		default:
		}
	}
}
