package model

import "maps"

// Document is a keyed JSON document as stored by the backend.
type Document map[string]any

// Clone returns a shallow copy of doc.
// Mutating the copy's top-level fields never affects the original.
func (doc Document) Clone() Document {
	if doc == nil {
		return nil
	}
	res := make(Document, len(doc))
	maps.Copy(res, doc)
	return res
}

// WatchEvent is a single emission of a backend live feed.
// Exactly one of Doc and Err is meaningful.
type WatchEvent struct {
	Doc Document
	Err error
}
