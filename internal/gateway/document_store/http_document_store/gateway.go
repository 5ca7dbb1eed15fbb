package http_document_store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/horockey/docstream/internal/gateway/document_store"
	"github.com/horockey/docstream/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	ssePrefix = "data: "

	// Documents larger than bufio's default 64KB token must still fit
	// on one SSE data line.
	sseMaxEventSize = 1 << 20
)

var _ document_store.Gateway = &httpDocumentStore{}

type httpDocumentStore struct {
	cl      *resty.Client
	metrics *metrics
	logger  zerolog.Logger
}

func New(
	baseURL string,
	apiKey string,
	logger zerolog.Logger,
) *httpDocumentStore {
	return &httpDocumentStore{
		metrics: newMetrics(),
		logger:  logger,
		cl: resty.New().
			SetBaseURL(baseURL).
			SetHeader("X-Api-Key", apiKey).
			SetRetryCount(0),
	}
}

func (gw *httpDocumentStore) Metrics() []prometheus.Collector {
	return gw.metrics.list()
}

func (gw *httpDocumentStore) Read(ctx context.Context, key string) (res model.Document, resErr error) {
	gw.logger.Debug().Str("key", key).Msg("reading document from backend")
	defer func(ts time.Time) {
		gw.metrics.requestsCnt.Inc()
		gw.metrics.handleTimeHist.Observe(float64(time.Since(ts)))

		switch resErr {
		case nil:
			gw.metrics.successProcessCnt.Inc()
		default:
			gw.metrics.errProcessCnt.Inc()
		}
	}(time.Now())

	resp, err := gw.cl.R().
		SetContext(ctx).
		SetPathParam("key", key).
		Get("/docs/{key}")
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		break
	case http.StatusNotFound:
		return nil, model.KeyNotFoundError{Key: key}
	default:
		return nil, fmt.Errorf("got non-ok response (%s): %s", resp.Status(), resp.String())
	}

	doc := model.Document{}
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return doc, nil
}

func (gw *httpDocumentStore) Write(ctx context.Context, key string, doc model.Document) (res model.Document, resErr error) {
	gw.logger.Debug().Str("key", key).Msg("writing document to backend")
	defer func(ts time.Time) {
		gw.metrics.requestsCnt.Inc()
		gw.metrics.handleTimeHist.Observe(float64(time.Since(ts)))

		switch resErr {
		case nil:
			gw.metrics.successProcessCnt.Inc()
		default:
			gw.metrics.errProcessCnt.Inc()
		}
	}(time.Now())

	resp, err := gw.cl.R().
		SetContext(ctx).
		SetPathParam("key", key).
		SetHeader("Content-Type", "application/json").
		SetBody(doc).
		Put("/docs/{key}")
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("got non-ok response (%s): %s", resp.Status(), resp.String())
	}

	if len(resp.Body()) == 0 {
		return nil, nil
	}

	ack := model.Document{}
	if err := json.Unmarshal(resp.Body(), &ack); err != nil {
		return nil, fmt.Errorf("unmarshaling ack json: %w", err)
	}

	return ack, nil
}

func (gw *httpDocumentStore) Delete(ctx context.Context, key string) (resErr error) {
	gw.logger.Debug().Str("key", key).Msg("deleting document from backend")
	defer func(ts time.Time) {
		gw.metrics.requestsCnt.Inc()
		gw.metrics.handleTimeHist.Observe(float64(time.Since(ts)))

		switch resErr {
		case nil:
			gw.metrics.successProcessCnt.Inc()
		default:
			gw.metrics.errProcessCnt.Inc()
		}
	}(time.Now())

	resp, err := gw.cl.R().
		SetContext(ctx).
		SetPathParam("key", key).
		Delete("/docs/{key}")
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		break
	case http.StatusNotFound:
		return model.KeyNotFoundError{Key: key}
	default:
		return fmt.Errorf("got non-ok response (%s): %s", resp.Status(), resp.String())
	}

	return nil
}

// Watch opens the backend's SSE feed for key. Each "data:" line is one
// document emission; the feed channel closes when the server ends the
// stream or ctx is canceled.
func (gw *httpDocumentStore) Watch(ctx context.Context, key string) (<-chan model.WatchEvent, error) {
	gw.logger.Debug().Str("key", key).Msg("opening SSE feed")

	resp, err := gw.cl.R().
		SetContext(ctx).
		SetPathParam("key", key).
		SetDoNotParseResponse(true).
		Get("/docs/{key}/watch")
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		_ = resp.RawBody().Close()
		return nil, fmt.Errorf("got non-ok response (%s)", resp.Status())
	}

	gw.metrics.watchFeedsGauge.Inc()
	feed := make(chan model.WatchEvent)

	go func() {
		<-ctx.Done()
		// Unblocks the scanner below.
		_ = resp.RawBody().Close()
	}()

	go func() {
		defer func() {
			_ = resp.RawBody().Close()
			gw.metrics.watchFeedsGauge.Dec()
			close(feed)
		}()

		scanner := bufio.NewScanner(resp.RawBody())
		scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), sseMaxEventSize)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, ssePrefix) {
				continue
			}

			doc := model.Document{}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, ssePrefix)), &doc); err != nil {
				gw.logger.
					Error().
					Str("key", key).
					Err(fmt.Errorf("unmarshaling SSE event: %w", err)).
					Send()
				select {
				case feed <- model.WatchEvent{Err: fmt.Errorf("unmarshaling SSE event: %w", err)}:
				case <-ctx.Done():
					return
				}
				continue
			}

			select {
			case feed <- model.WatchEvent{Doc: doc}:
			case <-ctx.Done():
				return
			}
		}

		// A mid-stream read failure surfaces as an event before the
		// feed closes; plain closure is reserved for cancellation and
		// clean stream ends.
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			gw.logger.
				Error().
				Str("key", key).
				Err(fmt.Errorf("reading SSE stream: %w", err)).
				Send()
			select {
			case feed <- model.WatchEvent{Err: fmt.Errorf("reading SSE stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return feed, nil
}
