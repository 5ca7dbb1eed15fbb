package docstream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/horockey/docstream/internal/errmap"
	"github.com/horockey/docstream/internal/gateway/document_store"
	"github.com/horockey/docstream/internal/gateway/document_store/http_document_store"
	"github.com/horockey/docstream/internal/model"
	"github.com/horockey/docstream/internal/watchmux"
	"github.com/horockey/go-toolbox/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Client is a reactive gateway over a keyed-document backend.
// Every operation yields a Result: a usable document or a
// StructuredError, never a raised error.
type Client struct {
	store    document_store.Gateway
	mapper   model.ErrorMapper
	registry *watchmux.Registry
	logger   zerolog.Logger

	identityField  string
	emptyAsMissing bool
	readAfterWrite bool
}

type createClientParams struct {
	identityField  string
	emptyAsMissing bool
	readAfterWrite bool
	watchBufSize   int
	mapper         model.ErrorMapper
	logger         zerolog.Logger

	store document_store.Gateway
}

func defaultCreateClientParams() createClientParams {
	return createClientParams{
		identityField: "id",
		watchBufSize:  16, //nolint: mnd
		mapper:        errmap.New(),
		logger: zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("scope", "docstream_client").
			Logger(),
	}
}

func NewClient(
	baseURL string,
	apiKey string,
	opts ...options.Option[createClientParams],
) (*Client, error) {
	params := defaultCreateClientParams()
	if err := options.ApplyOptions(&params, opts...); err != nil {
		return nil, fmt.Errorf("applying opts: %w", err)
	}

	if params.store == nil {
		if baseURL == "" {
			return nil, errors.New("got empty base URL for default HTTP store")
		}
		params.store = http_document_store.New(
			baseURL,
			apiKey,
			params.logger.With().Str("scope", "http store").Logger(),
		)
	}

	cl := &Client{
		store:          params.store,
		mapper:         params.mapper,
		logger:         params.logger,
		identityField:  params.identityField,
		emptyAsMissing: params.emptyAsMissing,
		readAfterWrite: params.readAfterWrite,
	}

	cl.registry = watchmux.New(
		params.store,
		params.mapper,
		cl.injectIdentity,
		params.watchBufSize,
		params.logger.With().Str("scope", "watchmux").Logger(),
	)

	return cl, nil
}

func (cl *Client) Metrics() []prometheus.Collector {
	return slices.Concat(
		cl.store.Metrics(),
		cl.registry.Metrics(),
	)
}

// Read performs one backend round trip for key.
func (cl *Client) Read(ctx context.Context, key string) Result {
	cl.logger.Debug().Str("action", "read").Str("key", key).Send()
	opCtx := "read " + key

	doc, err := cl.store.Read(ctx, key)
	if err != nil {
		return model.Fail[model.Document](cl.mapper.FromException(err, opCtx))
	}

	if serr, found := cl.mapper.FromPayload(doc, opCtx); found {
		return model.Fail[model.Document](serr)
	}

	if cl.emptyAsMissing && len(doc) == 0 {
		return model.Fail[model.Document](
			cl.mapper.FromException(model.KeyNotFoundError{Key: key}, opCtx),
		)
	}

	return model.Ok(cl.injectIdentity(key, doc))
}

// Write performs one backend round trip for key. The success value is
// the echoed input, or the backend's own save acknowledgement when the
// read-after-write policy is enabled and the backend supplies one.
func (cl *Client) Write(ctx context.Context, key string, doc Document) Result {
	cl.logger.Debug().Str("action", "write").Str("key", key).Send()
	opCtx := "write " + key

	ack, err := cl.store.Write(ctx, key, doc)
	if err != nil {
		return model.Fail[model.Document](cl.mapper.FromException(err, opCtx))
	}

	if ack != nil {
		if serr, found := cl.mapper.FromPayload(ack, opCtx); found {
			return model.Fail[model.Document](serr)
		}
	}

	out := doc
	if cl.readAfterWrite && ack != nil {
		out = ack
	}

	return model.Ok(cl.injectIdentity(key, out))
}

// Delete performs one backend round trip for key. Absence of the key
// is not distinguished from successful deletion.
func (cl *Client) Delete(ctx context.Context, key string) Result {
	cl.logger.Debug().Str("action", "delete").Str("key", key).Send()
	opCtx := "delete " + key

	if err := cl.store.Delete(ctx, key); err != nil {
		var notFound model.KeyNotFoundError
		if errors.As(err, &notFound) {
			return model.Ok(model.Document{})
		}
		return model.Fail[model.Document](cl.mapper.FromException(err, opCtx))
	}

	return model.Ok(model.Document{})
}

// Watch returns a live fan-out view for key, backed by exactly one
// backend subscription per key no matter how many views exist.
// Every Watch call, same caller or not, must be paired with one
// DetachWatch; canceling the returned view alone keeps the shared
// subscription alive.
func (cl *Client) Watch(key string) *Subscription {
	return cl.registry.Acquire(key)
}

// DetachWatch gives back one Watch reference for key.
func (cl *Client) DetachWatch(key string) {
	cl.registry.Release(key)
}

// ReleaseDoc drops key's shared channel immediately regardless of
// watcher count. Safe no-op for unwatched keys (logout/teardown path).
func (cl *Client) ReleaseDoc(key string) {
	cl.registry.ForceRelease(key)
}

// Dispose tears down every live watch. The client must not be used
// afterwards; a second Dispose panics.
func (cl *Client) Dispose() {
	cl.registry.DisposeAll()
}

func (cl *Client) injectIdentity(key string, doc model.Document) model.Document {
	if _, found := doc[cl.identityField]; found {
		return doc
	}

	res := doc.Clone()
	if res == nil {
		res = model.Document{}
	}
	res[cl.identityField] = key
	return res
}
