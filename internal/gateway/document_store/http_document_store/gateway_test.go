package http_document_store_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/horockey/docstream/internal/controller/http_controller"
	"github.com/horockey/docstream/internal/gateway/document_store"
	"github.com/horockey/docstream/internal/gateway/document_store/http_document_store"
	"github.com/horockey/docstream/internal/model"
	"github.com/horockey/docstream/internal/repository/local_documents/badger_local_documents"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

func setupBackend(t *testing.T) string {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctrl := http_controller.New(
		"127.0.0.1:0",
		testAPIKey,
		badger_local_documents.New(db),
		zerolog.Nop(),
	)

	srv := httptest.NewServer(ctrl.Handler())
	t.Cleanup(srv.Close)

	return srv.URL
}

func newGateway(t *testing.T, apiKey string) document_store.Gateway {
	t.Helper()
	return http_document_store.New(setupBackend(t), apiKey, zerolog.Nop())
}

func Test_Roundtrip(t *testing.T) {
	gw := newGateway(t, testAPIKey)

	ack, err := gw.Write(context.Background(), "user1", model.Document{"name": "Ann"})
	require.NoError(t, err)
	require.NotNil(t, ack)
	assert.Equal(t, "Ann", ack["name"])
	assert.NotEmpty(t, ack["updatedAt"])

	doc, err := gw.Read(context.Background(), "user1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", doc["name"])

	require.NoError(t, gw.Delete(context.Background(), "user1"))

	_, err = gw.Read(context.Background(), "user1")
	assert.ErrorIs(t, err, model.KeyNotFoundError{Key: "user1"})
}

func Test_Read_Missing(t *testing.T) {
	gw := newGateway(t, testAPIKey)

	_, err := gw.Read(context.Background(), "missing")

	assert.ErrorIs(t, err, model.KeyNotFoundError{Key: "missing"})
}

func Test_WrongApiKey(t *testing.T) {
	gw := newGateway(t, "wrong-key")

	_, err := gw.Read(context.Background(), "user1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.KeyNotFoundError{Key: "user1"})

	_, err = gw.Write(context.Background(), "user1", model.Document{})
	assert.Error(t, err)
}

func Test_Watch_DeliversWrites(t *testing.T) {
	gw := newGateway(t, testAPIKey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := gw.Watch(ctx, "user1")
	require.NoError(t, err)

	// The SSE subscription attaches asynchronously on the server side,
	// so keep writing until an event comes through.
	deadline := time.After(5 * time.Second)
	for {
		_, err := gw.Write(context.Background(), "user1", model.Document{"v": "1"})
		require.NoError(t, err)

		select {
		case ev := <-feed:
			require.NoError(t, ev.Err)
			assert.Equal(t, "1", ev.Doc["v"])
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("no SSE event received")
		}
	}
}

func Test_Watch_OversizedEvent(t *testing.T) {
	// Well over bufio's default 64KB token limit.
	big := strings.Repeat("x", 200*1024)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		data, _ := json.Marshal(model.Document{"blob": big})
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		w.(http.Flusher).Flush()

		<-req.Context().Done()
	}))
	t.Cleanup(srv.Close)

	gw := http_document_store.New(srv.URL, testAPIKey, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := gw.Watch(ctx, "doc1")
	require.NoError(t, err)

	select {
	case ev := <-feed:
		require.NoError(t, ev.Err)
		assert.Equal(t, big, ev.Doc["blob"])
	case <-time.After(5 * time.Second):
		t.Fatal("no SSE event received")
	}
}

func Test_Watch_ClosesOnCancel(t *testing.T) {
	gw := newGateway(t, testAPIKey)

	ctx, cancel := context.WithCancel(context.Background())

	feed, err := gw.Watch(ctx, "user1")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-feed:
		assert.False(t, open)
	case <-time.After(5 * time.Second):
		t.Fatal("feed was not closed after cancel")
	}
}
