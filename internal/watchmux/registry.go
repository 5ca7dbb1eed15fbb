// Package watchmux multiplexes live-feed watchers: no matter how many
// views are acquired for a key, the backend feed is subscribed exactly
// once, with reference-counted, caller-managed lifecycle.
package watchmux

import (
	"context"
	"sync"

	"github.com/horockey/docstream/internal/gateway/document_store"
	"github.com/horockey/docstream/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// DocTransform is applied to every successful emission before fan-out.
type DocTransform func(key string, doc model.Document) model.Document

type Registry struct {
	store     document_store.Gateway
	mapper    model.ErrorMapper
	transform DocTransform
	bufSize   int
	logger    zerolog.Logger

	mu       sync.Mutex
	channels map[string]*sharedChannel
	disposed bool

	metrics *metrics
}

func New(
	store document_store.Gateway,
	mapper model.ErrorMapper,
	transform DocTransform,
	bufSize int,
	logger zerolog.Logger,
) *Registry {
	// Two buffered slots are preloaded on Acquire (bootstrap plus a
	// possible terminal last value); never go below that.
	if bufSize < 2 {
		bufSize = 2
	}
	return &Registry{
		store:     store,
		mapper:    mapper,
		transform: transform,
		bufSize:   bufSize,
		logger:    logger,
		channels:  map[string]*sharedChannel{},
		metrics:   newMetrics(),
	}
}

func (r *Registry) Metrics() []prometheus.Collector {
	return r.metrics.list()
}

// Acquire returns a new fan-out view for key, creating the shared
// channel (and the single backend subscription) on first use and
// incrementing the reference count otherwise. Every call, including
// repeated calls from one caller, must be paired with one Release.
//
// The first emission on the returned view is always the bootstrap
// empty-success sentinel, warm channel or not.
func (r *Registry) Acquire(key string) *Subscription {
	sub := &Subscription{
		updates: make(chan model.Result[model.Document], r.bufSize),
	}
	sub.updates <- model.Ok(model.Document{})

	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		panic("watchmux: Acquire on disposed registry")
	}
	r.metrics.watchersGauge.Inc()

	ch, found := r.channels[key]
	if !found {
		ctx, cancel := context.WithCancel(context.Background())
		ch = &sharedChannel{
			key:    key,
			cancel: cancel,
			refs:   1,
			subs:   map[*Subscription]struct{}{sub: {}},
		}
		sub.ch = ch
		r.channels[key] = ch
		r.metrics.channelsGauge.Inc()
		r.mu.Unlock()

		// First watcher is attached before the pump starts, so it sees
		// every feed emission after its bootstrap value.
		go r.pump(ctx, ch)

		r.logger.Debug().Str("key", key).Int("refs", 1).Msg("acquired watch")
		return sub
	}

	ch.refs++
	refs := ch.refs
	r.mu.Unlock()

	r.logger.Debug().Str("key", key).Int("refs", refs).Msg("acquired watch")

	sub.ch = ch

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.disposed {
		sub.close()
		return sub
	}
	if ch.terminal && ch.hasLast {
		// Late joiner of a dead feed still sees the terminal failure.
		sub.updates <- ch.last
	}
	ch.subs[sub] = struct{}{}

	return sub
}

// Release decrements key's reference count, disposing the shared
// channel (canceling the backend subscription) when it reaches zero.
// No-op for an unknown key.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	ch, found := r.channels[key]
	if !found {
		r.mu.Unlock()
		return
	}

	ch.refs--
	refs := ch.refs
	r.metrics.watchersGauge.Dec()
	if refs > 0 {
		r.mu.Unlock()
		r.logger.Debug().Str("key", key).Int("refs", refs).Msg("released watch")
		return
	}

	delete(r.channels, key)
	r.metrics.channelsGauge.Dec()
	r.mu.Unlock()

	r.logger.Debug().Str("key", key).Msg("disposing idle channel")
	ch.dispose()
}

// ForceRelease disposes key's channel immediately, ignoring the
// reference count. Safe no-op for an unknown key.
func (r *Registry) ForceRelease(key string) {
	r.mu.Lock()
	ch, found := r.channels[key]
	if !found {
		r.mu.Unlock()
		return
	}

	delete(r.channels, key)
	r.metrics.channelsGauge.Dec()
	r.metrics.watchersGauge.Sub(float64(ch.refs))
	r.mu.Unlock()

	r.logger.Info().Str("key", key).Msg("force-releasing channel")
	ch.dispose()
}

// DisposeAll tears down every channel and marks the registry terminal.
// Calling it twice is a programmer error.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		panic("watchmux: DisposeAll on disposed registry")
	}
	r.disposed = true

	chans := lo.Values(r.channels)
	r.channels = map[string]*sharedChannel{}
	r.metrics.channelsGauge.Set(0)
	r.metrics.watchersGauge.Set(0)
	r.mu.Unlock()

	for _, ch := range chans {
		ch.dispose()
	}
}

func (r *Registry) pump(ctx context.Context, ch *sharedChannel) {
	opCtx := "watch " + ch.key

	feed, err := r.store.Watch(ctx, ch.key)
	if err != nil {
		r.logger.
			Error().
			Str("key", ch.key).
			Err(err).
			Msg("subscribing to backend feed")
		ch.emit(model.Fail[model.Document](r.mapper.FromException(err, opCtx)), false)
		ch.emit(model.Fail[model.Document](
			r.mapper.FromException(model.StreamClosedError{Key: ch.key}, opCtx),
		), true)
		return
	}

	for ev := range feed {
		var res model.Result[model.Document]
		switch {
		case ev.Err != nil:
			res = model.Fail[model.Document](r.mapper.FromException(ev.Err, opCtx))
		default:
			if serr, found := r.mapper.FromPayload(ev.Doc, opCtx); found {
				res = model.Fail[model.Document](serr)
				break
			}
			doc := ev.Doc
			if r.transform != nil {
				doc = r.transform(ch.key, doc)
			}
			res = model.Ok(doc)
		}

		r.metrics.emissionsCnt.Inc()
		ch.emit(res, false)
	}

	if ctx.Err() != nil {
		// Registry-initiated cancel, not a backend closure.
		return
	}

	ch.emit(model.Fail[model.Document](
		r.mapper.FromException(model.StreamClosedError{Key: ch.key}, opCtx),
	), true)
}
