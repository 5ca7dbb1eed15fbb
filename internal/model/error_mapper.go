package model

// ErrorMapper converts raw failures and business-error payloads
// into StructuredError. Implementations must be pure and never panic.
type ErrorMapper interface {
	FromException(err error, opCtx string) StructuredError
	FromPayload(doc Document, opCtx string) (StructuredError, bool)
}
