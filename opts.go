package docstream

import (
	"errors"
	"fmt"

	"github.com/horockey/go-toolbox/options"
	"github.com/rs/zerolog"
)

// Sets the field name injected into payloads missing an identity.
// Default is "id".
func WithIdentityField(name string) options.Option[createClientParams] {
	return func(target *createClientParams) error {
		if name == "" {
			return errors.New("got empty identity field name")
		}
		target.identityField = name
		return nil
	}
}

// Treats an empty backend payload as a missing document on Read.
// Default is off: an empty payload reads as an empty document.
func WithEmptyAsMissing() options.Option[createClientParams] {
	return func(target *createClientParams) error {
		target.emptyAsMissing = true
		return nil
	}
}

// Makes Write resolve to the backend's save acknowledgement instead of
// echoing the input. No extra round trip: only acknowledgements the
// backend already returns are used. Default is off.
func WithReadAfterWrite() options.Option[createClientParams] {
	return func(target *createClientParams) error {
		target.readAfterWrite = true
		return nil
	}
}

// Sets buffer size of each watcher view.
// Default is 16.
func WithWatchBufSize(size int) options.Option[createClientParams] {
	return func(target *createClientParams) error {
		if size <= 0 {
			return fmt.Errorf("watch buf size must be positive, got: %d", size)
		}
		target.watchBufSize = size
		return nil
	}
}

// Sets custom logger.
// Default is stdout logger.
func WithLogger(l zerolog.Logger) options.Option[createClientParams] {
	return func(target *createClientParams) error {
		target.logger = l
		return nil
	}
}

// Sets custom error mapper.
// Default mapper classifies transport/not-found/stream-closed failures
// and "error"-keyed business payloads.
func WithErrorMapper(m ErrorMapper) options.Option[createClientParams] {
	return func(target *createClientParams) error {
		if m == nil {
			return errors.New("got nil error mapper")
		}
		target.mapper = m
		return nil
	}
}

// Sets user-defined backend store. The baseURL/apiKey args of
// NewClient are ignored when this opt is applied.
func WithStore(store Store) options.Option[createClientParams] {
	return func(target *createClientParams) error {
		if store == nil {
			return errors.New("got nil store")
		}
		target.store = store
		return nil
	}
}

// Sets custom badger root dir for the server's default repository.
// Default is ./badger
func WithBadgerDir(dir string) options.Option[createServerParams] {
	return func(target *createServerParams) error {
		if dir == "" {
			return errors.New("got empty badger dir")
		}
		target.badgerDir = dir
		return nil
	}
}

// Sets custom server logger.
// Default is stdout logger.
func WithServerLogger(l zerolog.Logger) options.Option[createServerParams] {
	return func(target *createServerParams) error {
		target.logger = l
		return nil
	}
}

// Sets user-defined server-side repository instead of the default
// badger one.
//
// WARNING! Apply this opt only if you know what you are doing.
func WithDocRepository(repo DocumentRepository) options.Option[createServerParams] {
	return func(target *createServerParams) error {
		if repo == nil {
			return errors.New("got nil repository")
		}
		target.repo = repo
		return nil
	}
}
