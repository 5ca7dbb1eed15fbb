package badger_local_documents

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/horockey/docstream/internal/model"
	"github.com/horockey/docstream/internal/repository/local_documents"
	"github.com/prometheus/client_golang/prometheus"
)

const updatedAtField = "updatedAt"

var _ local_documents.Repository = &badgerLocalDocuments{}

type badgerLocalDocuments struct {
	db      *badger.DB
	metrics *metrics
}

func New(db *badger.DB) *badgerLocalDocuments {
	return &badgerLocalDocuments{
		db:      db,
		metrics: newMetrics(),
	}
}

func (repo *badgerLocalDocuments) Metrics() []prometheus.Collector {
	return repo.metrics.list()
}

func (repo *badgerLocalDocuments) Get(key string) (resDoc model.Document, resErr error) {
	defer func(ts time.Time) {
		repo.metrics.requestsCnt.Inc()
		repo.metrics.handleTimeHist.Observe(float64(time.Since(ts)))

		switch {
		case resErr == nil:
			repo.metrics.successProcessCnt.Inc()
			repo.metrics.keyHitsCnt.Inc()
		case errors.Is(resErr, model.KeyNotFoundError{Key: key}):
			repo.metrics.keyMissesCnt.Inc()
			fallthrough
		default:
			repo.metrics.errProcessCnt.Inc()
		}
	}(time.Now())

	res := model.Document{}
	if err := repo.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return model.KeyNotFoundError{Key: key}
			}
			return fmt.Errorf("getting item: %w", err)
		}

		if err := item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &res); err != nil {
				return fmt.Errorf("decoding json: %w", err)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("getting value: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("reading from db: %w", err)
	}

	return res, nil
}

func (repo *badgerLocalDocuments) Put(key string, doc model.Document) (resDoc model.Document, resErr error) {
	defer func(ts time.Time) {
		repo.metrics.requestsCnt.Inc()
		repo.metrics.handleTimeHist.Observe(float64(time.Since(ts)))

		switch resErr {
		case nil:
			repo.metrics.successProcessCnt.Inc()
		default:
			repo.metrics.errProcessCnt.Inc()
		}
	}(time.Now())

	stored := doc.Clone()
	if stored == nil {
		stored = model.Document{}
	}
	stored[updatedAtField] = time.Now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}

	if err := repo.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("setting item to db: %w", err)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("performing upd txn: %w", err)
	}

	return stored, nil
}

func (repo *badgerLocalDocuments) Remove(key string) (resErr error) {
	defer func(ts time.Time) {
		repo.metrics.requestsCnt.Inc()
		repo.metrics.handleTimeHist.Observe(float64(time.Since(ts)))

		switch resErr {
		case nil:
			repo.metrics.successProcessCnt.Inc()
		default:
			repo.metrics.errProcessCnt.Inc()
		}
	}(time.Now())

	if err := repo.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(key)); err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("performing del txn: %w", err)
	}

	return nil
}
