package docstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/horockey/docstream/internal/model"
	"github.com/horockey/docstream/pkg/keyfifo"
	"github.com/rs/zerolog"
)

// Repository is a typed layer over Client: documents are decoded into
// E, and writes/deletes for one id are serialized FIFO through a
// per-key executor, so concurrent saves of the same entity never race.
type Repository[E any] struct {
	cl     *Client
	exec   *keyfifo.Executor[string]
	logger zerolog.Logger
}

func NewRepository[E any](cl *Client) *Repository[E] {
	return &Repository[E]{
		cl:     cl,
		exec:   keyfifo.New[string](),
		logger: cl.logger.With().Str("scope", "repository").Logger(),
	}
}

func (repo *Repository[E]) Get(ctx context.Context, id string) EntityResult[E] {
	opCtx := "get " + id

	doc, err := repo.cl.Read(ctx, id).Unpack()
	if err != nil {
		return repo.fail(err, opCtx)
	}

	return repo.decode(doc, opCtx)
}

// Save routes the write through the per-id FIFO queue: it runs only
// after every previously submitted Save/Delete for id has settled.
func (repo *Repository[E]) Save(ctx context.Context, id string, entity E) EntityResult[E] {
	repo.logger.Debug().Str("action", "save").Str("id", id).Send()
	opCtx := "save " + id

	doc, err := encodeDocument(entity)
	if err != nil {
		return repo.fail(fmt.Errorf("encoding entity: %w", err), opCtx)
	}

	resDoc, err := keyfifo.WithLock(
		ctx,
		repo.exec,
		id,
		func(ctx context.Context) (model.Document, error) {
			return repo.cl.Write(ctx, id, doc).Unpack()
		},
	)
	if err != nil {
		return repo.fail(err, opCtx)
	}

	return repo.decode(resDoc, opCtx)
}

func (repo *Repository[E]) Delete(ctx context.Context, id string) Result {
	repo.logger.Debug().Str("action", "delete").Str("id", id).Send()

	_, err := keyfifo.WithLock(
		ctx,
		repo.exec,
		id,
		func(ctx context.Context) (model.Document, error) {
			return repo.cl.Delete(ctx, id).Unpack()
		},
	)
	if err != nil {
		var serr *model.StructuredError
		if errors.As(err, &serr) {
			return Fail(*serr)
		}
		return Fail(repo.cl.mapper.FromException(err, "delete "+id))
	}

	return Ok(Document{})
}

// Dispose stops FIFO chaining for all ids. In-flight actions keep
// running; the underlying Client stays usable.
func (repo *Repository[E]) Dispose() {
	repo.exec.Dispose()
}

func (repo *Repository[E]) fail(err error, opCtx string) EntityResult[E] {
	var serr *model.StructuredError
	if errors.As(err, &serr) {
		return model.Fail[E](*serr)
	}
	return model.Fail[E](repo.cl.mapper.FromException(err, opCtx))
}

func (repo *Repository[E]) decode(doc model.Document, opCtx string) EntityResult[E] {
	var entity E

	data, err := json.Marshal(doc)
	if err != nil {
		return repo.fail(fmt.Errorf("encoding document: %w", err), opCtx)
	}
	if err := json.Unmarshal(data, &entity); err != nil {
		return repo.fail(fmt.Errorf("decoding document into entity: %w", err), opCtx)
	}

	return model.Ok(entity)
}

func encodeDocument(entity any) (model.Document, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encoding entity json: %w", err)
	}

	doc := model.Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding entity json into document: %w", err)
	}

	return doc, nil
}
