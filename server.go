package docstream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/horockey/docstream/internal/controller/http_controller"
	"github.com/horockey/docstream/internal/repository/local_documents"
	"github.com/horockey/docstream/internal/repository/local_documents/badger_local_documents"
	"github.com/horockey/go-toolbox/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// DocumentRepository is the server-side persistence boundary.
type DocumentRepository = local_documents.Repository

// Server is the backend counterpart of Client: it persists documents
// and serves them over HTTP with per-key SSE live feeds.
type Server struct {
	ctrl   *http_controller.HttpController
	repo   local_documents.Repository
	db     *badger.DB
	logger zerolog.Logger
}

type createServerParams struct {
	badgerDir string
	logger    zerolog.Logger

	repo local_documents.Repository
}

func defaultCreateServerParams() createServerParams {
	return createServerParams{
		badgerDir: "./badger",
		logger: defaultCreateClientParams().logger.With().
			Str("scope", "docstream_server").
			Logger(),
	}
}

func NewServer(
	addr string,
	apiKey string,
	opts ...options.Option[createServerParams],
) (*Server, error) {
	params := defaultCreateServerParams()
	if err := options.ApplyOptions(&params, opts...); err != nil {
		return nil, fmt.Errorf("applying opts: %w", err)
	}

	srv := Server{
		repo:   params.repo,
		logger: params.logger,
	}

	if srv.repo == nil {
		db, err := badger.Open(badger.DefaultOptions(params.badgerDir))
		if err != nil {
			return nil, fmt.Errorf("opening badger db: %w", err)
		}
		srv.db = db
		srv.repo = badger_local_documents.New(db)
	}

	srv.ctrl = http_controller.New(
		addr,
		apiKey,
		srv.repo,
		params.logger.With().Str("subscope", "http_controller").Logger(),
	)

	return &srv, nil
}

// Start serves until ctx is canceled, then shuts the listener down and
// closes the owned badger db (if any).
func (srv *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ctrl.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			srv.logger.
				Error().
				Err(fmt.Errorf("running http controller: %w", err)).
				Send()
			cancel()
		}
	}()

	<-runCtx.Done()
	wg.Wait()

	if srv.db != nil {
		if err := srv.db.Close(); err != nil {
			srv.logger.
				Error().
				Err(fmt.Errorf("closing badger db: %w", err)).
				Send()
		}
	}

	return fmt.Errorf("running context: %w", runCtx.Err())
}

func (srv *Server) Metrics() []prometheus.Collector {
	return slices.Concat(
		srv.repo.Metrics(),
		srv.ctrl.Metrics(),
	)
}
