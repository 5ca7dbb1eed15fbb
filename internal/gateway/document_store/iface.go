package document_store

import (
	"context"

	"github.com/horockey/docstream/internal/model"
)

// Gateway is the backend document store boundary.
// Any call may fail with a raw error: mapping to StructuredError
// happens above, at the client boundary.
type Gateway interface {
	model.MetricsProvider
	Read(ctx context.Context, key string) (model.Document, error)
	// Write stores doc and returns the backend's own acknowledgement
	// payload, or nil when the backend does not supply one.
	Write(ctx context.Context, key string, doc model.Document) (model.Document, error)
	Delete(ctx context.Context, key string) error
	// Watch opens a live feed for key. The returned channel closes when
	// ctx is canceled or the backend terminates the stream; errors on
	// an established feed arrive as events, not as channel closure.
	Watch(ctx context.Context, key string) (<-chan model.WatchEvent, error)
}
