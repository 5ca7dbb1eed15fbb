// Package http_controller serves documents over HTTP: CRUD on
// /docs/{key} plus a per-key SSE live feed on /docs/{key}/watch.
// It is the backend counterpart of the client's HTTP store.
package http_controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/horockey/docstream/internal/model"
	"github.com/horockey/docstream/internal/repository/local_documents"
	"github.com/horockey/go-toolbox/http_helpers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type HttpController struct {
	serv    *http.Server
	apiKey  string
	repo    local_documents.Repository
	hub     *watchHub
	logger  zerolog.Logger
	metrics *metrics
}

func New(
	addr string,
	apiKey string,
	repo local_documents.Repository,
	logger zerolog.Logger,
) *HttpController {
	ctrl := HttpController{
		serv: &http.Server{
			Addr: addr,
		},
		apiKey:  apiKey,
		repo:    repo,
		hub:     newWatchHub(),
		logger:  logger,
		metrics: newMetrics(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/docs/{key}/watch", ctrl.watchDocHandler).Methods(http.MethodGet)
	router.HandleFunc("/docs/{key}", ctrl.getDocHandler).Methods(http.MethodGet)
	router.HandleFunc("/docs/{key}", ctrl.putDocHandler).Methods(http.MethodPut)
	router.HandleFunc("/docs/{key}", ctrl.deleteDocHandler).Methods(http.MethodDelete)
	router.Use(ctrl.authMW)

	ctrl.serv.Handler = router

	return &ctrl
}

func (ctrl *HttpController) Metrics() []prometheus.Collector {
	return ctrl.metrics.list()
}

// Handler exposes the routed handler for embedding into an existing
// server instead of running Start.
func (ctrl *HttpController) Handler() http.Handler {
	return ctrl.serv.Handler
}

func (ctrl *HttpController) Start(ctx context.Context) (resErr error) {
	var wg sync.WaitGroup
	defer wg.Wait()

	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ctrl.serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) {
			resErr = errors.Join(resErr, fmt.Errorf("running context: %w", ctx.Err()))
		}

		sdCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := ctrl.serv.Shutdown(sdCtx); err != nil {
			resErr = errors.Join(resErr, fmt.Errorf("shutting down server: %w", err))
		}
		return resErr

	case err := <-errCh:
		return fmt.Errorf("running server: %w", err)
	}
}

func (ctrl *HttpController) authMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("X-Api-Key") != ctrl.apiKey {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (ctrl *HttpController) getDocHandler(w http.ResponseWriter, req *http.Request) {
	ctrl.metrics.requestsCnt.Inc()

	key, found := mux.Vars(req)["key"]
	if !found {
		err := errors.New("missing key")
		ctrl.logger.Error().Err(err).Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	}

	doc, err := ctrl.repo.Get(key)
	if err != nil {
		if errors.Is(err, model.KeyNotFoundError{Key: key}) {
			_ = http_helpers.RespondWithErr(w, http.StatusNotFound, model.KeyNotFoundError{Key: key})
			return
		}
		ctrl.logger.
			Error().
			Err(fmt.Errorf("getting doc from repo: %w", err)).
			Send()
		_ = http_helpers.RespondWithErr(w, http.StatusInternalServerError, nil)
		return
	}

	_ = http_helpers.RespondOK(w, doc)
}

func (ctrl *HttpController) putDocHandler(w http.ResponseWriter, req *http.Request) {
	ctrl.metrics.requestsCnt.Inc()

	key, found := mux.Vars(req)["key"]
	if !found {
		err := errors.New("missing key")
		ctrl.logger.Error().Err(err).Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	}

	doc := model.Document{}
	if err := json.NewDecoder(req.Body).Decode(&doc); err != nil {
		ctrl.logger.
			Error().
			Err(fmt.Errorf("decoding body: %w", err)).
			Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, errors.New("malformed document body"))
		return
	}

	ack, err := ctrl.repo.Put(key, doc)
	if err != nil {
		ctrl.logger.
			Error().
			Err(fmt.Errorf("putting doc to repo: %w", err)).
			Send()
		_ = http_helpers.RespondWithErr(w, http.StatusInternalServerError, nil)
		return
	}

	ctrl.hub.broadcast(key, ack)

	_ = http_helpers.RespondOK(w, ack)
}

func (ctrl *HttpController) deleteDocHandler(w http.ResponseWriter, req *http.Request) {
	ctrl.metrics.requestsCnt.Inc()

	key, found := mux.Vars(req)["key"]
	if !found {
		err := errors.New("missing key")
		ctrl.logger.Error().Err(err).Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	}

	if err := ctrl.repo.Remove(key); err != nil {
		ctrl.logger.
			Error().
			Err(fmt.Errorf("deleting doc from repo: %w", err)).
			Send()
		_ = http_helpers.RespondWithErr(w, http.StatusInternalServerError, nil)
		return
	}

	ctrl.hub.broadcast(key, model.Document{})

	_ = http_helpers.RespondOK(w, nil)
}

func (ctrl *HttpController) watchDocHandler(w http.ResponseWriter, req *http.Request) {
	ctrl.metrics.requestsCnt.Inc()

	key, found := mux.Vars(req)["key"]
	if !found {
		err := errors.New("missing key")
		ctrl.logger.Error().Err(err).Send()
		_ = http_helpers.RespondWithErr(w, http.StatusBadRequest, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = http_helpers.RespondWithErr(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := ctrl.hub.subscribe(key)
	defer ctrl.hub.unsubscribe(key, ch)

	ctrl.metrics.watchersGauge.Inc()
	defer ctrl.metrics.watchersGauge.Dec()

	ctrl.logger.Debug().Str("key", key).Msg("SSE watcher attached")

	for {
		select {
		case <-req.Context().Done():
			return
		case doc := <-ch:
			data, err := json.Marshal(doc)
			if err != nil {
				ctrl.logger.
					Error().
					Err(fmt.Errorf("encoding SSE event: %w", err)).
					Send()
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
