package errmap

import (
	"context"
	"errors"

	"github.com/horockey/docstream/internal/model"
)

var _ model.ErrorMapper = Mapper{}

// Mapper is the default ErrorMapper: it classifies transport failures,
// missing documents and closed feeds, and recognizes business-error
// payloads carried inside an otherwise successful document.
type Mapper struct{}

func New() Mapper {
	return Mapper{}
}

func (m Mapper) FromException(err error, opCtx string) model.StructuredError {
	meta := map[string]string{"operation": opCtx}

	var notFound model.KeyNotFoundError
	if errors.As(err, &notFound) {
		meta["key"] = notFound.Key
		return model.StructuredError{
			Title:       "document not found",
			Code:        model.CodeNotFound,
			Description: err.Error(),
			Severity:    model.SeverityWarning,
			Metadata:    meta,
		}
	}

	var closed model.StreamClosedError
	if errors.As(err, &closed) {
		meta["key"] = closed.Key
		return model.StructuredError{
			Title:       "live feed closed",
			Code:        model.CodeStreamClosed,
			Description: err.Error(),
			Severity:    model.SeverityError,
			Metadata:    meta,
		}
	}

	sev := model.SeverityError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		sev = model.SeverityWarning
	}

	return model.StructuredError{
		Title:       "backend call failed",
		Code:        model.CodeTransport,
		Description: err.Error(),
		Severity:    sev,
		Metadata:    meta,
	}
}

// FromPayload reports a business failure when doc carries an "error"
// object, e.g. {"error": {"title": ..., "code": ..., "description": ...}}.
func (m Mapper) FromPayload(doc model.Document, opCtx string) (model.StructuredError, bool) {
	raw, found := doc["error"]
	if !found || raw == nil {
		return model.StructuredError{}, false
	}

	res := model.StructuredError{
		Title:    "business error",
		Code:     model.CodeBusiness,
		Severity: model.SeverityError,
		Metadata: map[string]string{"operation": opCtx},
	}

	switch payload := raw.(type) {
	case string:
		res.Description = payload
	case map[string]any:
		if v, ok := payload["title"].(string); ok && v != "" {
			res.Title = v
		}
		if v, ok := payload["code"].(string); ok && v != "" {
			res.Code = v
		}
		if v, ok := payload["description"].(string); ok {
			res.Description = v
		}
		if v, ok := payload["severity"].(string); ok && v != "" {
			res.Severity = model.Severity(v)
		}
		for k, v := range payload {
			if s, ok := v.(string); ok {
				res.Metadata[k] = s
			}
		}
	default:
		return model.StructuredError{}, false
	}

	return res, true
}
