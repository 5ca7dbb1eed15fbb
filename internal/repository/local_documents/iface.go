package local_documents

import "github.com/horockey/docstream/internal/model"

// Repository is server-side document persistence.
// Missing keys are reported as model.KeyNotFoundError.
type Repository interface {
	model.MetricsProvider
	Get(key string) (model.Document, error)
	// Put stores doc and returns the acknowledgement payload actually
	// persisted (server-managed fields included).
	Put(key string, doc model.Document) (model.Document, error)
	Remove(key string) error
}
