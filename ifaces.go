package docstream

import (
	"github.com/horockey/docstream/internal/gateway/document_store"
	"github.com/horockey/docstream/internal/gateway/document_store/inmemory_document_store"
	"github.com/horockey/docstream/internal/model"
	"github.com/horockey/docstream/internal/watchmux"
)

type (
	Document            = model.Document
	Result              = model.Result[model.Document]
	EntityResult[E any] = model.Result[E]
	StructuredError     = model.StructuredError
	Severity            = model.Severity
	WatchEvent          = model.WatchEvent
	Subscription        = watchmux.Subscription
)

// Store is the backend document store boundary. Bring your own
// implementation via WithStore, or use the bundled HTTP/in-memory ones.
type Store = document_store.Gateway

// ErrorMapper converts raw failures and business-error payloads into
// StructuredError. Implementations must be pure and never panic.
type ErrorMapper = model.ErrorMapper

const (
	SeverityWarning = model.SeverityWarning
	SeverityError   = model.SeverityError
	SeverityFatal   = model.SeverityFatal

	CodeTransport    = model.CodeTransport
	CodeBusiness     = model.CodeBusiness
	CodeNotFound     = model.CodeNotFound
	CodeStreamClosed = model.CodeStreamClosed
)

func Ok(doc Document) Result {
	return model.Ok(doc)
}

func Fail(err StructuredError) Result {
	return model.Fail[model.Document](err)
}

// NewInmemoryStore returns a process-local Store with full watch
// support. Meant for embedded use and tests.
func NewInmemoryStore() Store {
	return inmemory_document_store.New()
}
