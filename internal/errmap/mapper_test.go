package errmap_test

import (
	"context"
	"errors"
	"testing"

	"github.com/horockey/docstream/internal/errmap"
	"github.com/horockey/docstream/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_FromException_NotFound(t *testing.T) {
	m := errmap.New()

	serr := m.FromException(model.KeyNotFoundError{Key: "doc1"}, "read doc1")

	assert.Equal(t, model.CodeNotFound, serr.Code)
	assert.Equal(t, model.SeverityWarning, serr.Severity)
	assert.Equal(t, "doc1", serr.Metadata["key"])
	assert.Equal(t, "read doc1", serr.Metadata["operation"])
}

func Test_FromException_StreamClosed(t *testing.T) {
	m := errmap.New()

	serr := m.FromException(model.StreamClosedError{Key: "doc1"}, "watch doc1")

	assert.Equal(t, model.CodeStreamClosed, serr.Code)
	assert.Equal(t, model.SeverityError, serr.Severity)
}

func Test_FromException_Transport(t *testing.T) {
	m := errmap.New()

	serr := m.FromException(errors.New("connection refused"), "write doc1")

	assert.Equal(t, model.CodeTransport, serr.Code)
	assert.Equal(t, model.SeverityError, serr.Severity)
	assert.Contains(t, serr.Description, "connection refused")
}

func Test_FromException_CanceledContextIsWarning(t *testing.T) {
	m := errmap.New()

	serr := m.FromException(context.Canceled, "read doc1")

	assert.Equal(t, model.CodeTransport, serr.Code)
	assert.Equal(t, model.SeverityWarning, serr.Severity)
}

func Test_FromPayload_BusinessObject(t *testing.T) {
	m := errmap.New()

	doc := model.Document{
		"id": "doc1",
		"error": map[string]any{
			"title":       "quota exceeded",
			"code":        "quota",
			"description": "too many documents",
			"severity":    "fatal",
		},
	}

	serr, found := m.FromPayload(doc, "write doc1")
	require.True(t, found)

	assert.Equal(t, "quota exceeded", serr.Title)
	assert.Equal(t, "quota", serr.Code)
	assert.Equal(t, "too many documents", serr.Description)
	assert.Equal(t, model.SeverityFatal, serr.Severity)
}

func Test_FromPayload_BusinessString(t *testing.T) {
	m := errmap.New()

	serr, found := m.FromPayload(model.Document{"error": "nope"}, "read doc1")
	require.True(t, found)

	assert.Equal(t, model.CodeBusiness, serr.Code)
	assert.Equal(t, "nope", serr.Description)
}

func Test_FromPayload_CleanDocument(t *testing.T) {
	m := errmap.New()

	_, found := m.FromPayload(model.Document{"id": "doc1", "name": "a"}, "read doc1")

	assert.False(t, found)
}
