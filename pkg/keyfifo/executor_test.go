package keyfifo_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/horockey/docstream/pkg/keyfifo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WithLock_FifoPerKey(t *testing.T) {
	ex := keyfifo.New[string]()
	defer ex.Dispose()

	delays := []time.Duration{
		30 * time.Millisecond,
		10 * time.Millisecond,
		5 * time.Millisecond,
		0,
	}

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)

	for tag, delay := range delays {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := keyfifo.WithLock(
				context.Background(),
				ex,
				"k",
				func(_ context.Context) (int, error) {
					time.Sleep(delay)
					mu.Lock()
					order = append(order, tag)
					mu.Unlock()
					return tag, nil
				},
			)
			assert.NoError(t, err)
		}()
		// Keep submission order deterministic.
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func Test_WithLock_IndependentKeys(t *testing.T) {
	ex := keyfifo.New[string]()
	defer ex.Dispose()

	done := make(chan string, 2)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = keyfifo.WithLock(context.Background(), ex, "slow", func(_ context.Context) (any, error) {
			time.Sleep(100 * time.Millisecond)
			done <- "slow"
			return nil, nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		defer wg.Done()
		_, _ = keyfifo.WithLock(context.Background(), ex, "fast", func(_ context.Context) (any, error) {
			done <- "fast"
			return nil, nil
		})
	}()
	wg.Wait()

	assert.Equal(t, "fast", <-done)
	assert.Equal(t, "slow", <-done)
}

func Test_WithLock_ExactlyOnceNoOverlap(t *testing.T) {
	ex := keyfifo.New[string]()
	defer ex.Dispose()

	const n = 50

	var (
		runs    atomic.Int32
		running atomic.Int32
		wg      sync.WaitGroup
	)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := keyfifo.WithLock(context.Background(), ex, "k", func(_ context.Context) (any, error) {
				assert.Equal(t, int32(1), running.Add(1))
				runs.Add(1)
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return nil, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(n), runs.Load())
}

func Test_WithLock_FailureDoesNotBlockQueue(t *testing.T) {
	ex := keyfifo.New[string]()
	defer ex.Dispose()

	wantErr := errors.New("action failed")

	_, err := keyfifo.WithLock(context.Background(), ex, "k", func(_ context.Context) (any, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	res, err := keyfifo.WithLock(context.Background(), ex, "k", func(_ context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

func Test_WithLock_NestedDifferentKey(t *testing.T) {
	ex := keyfifo.New[string]()
	defer ex.Dispose()

	res, err := keyfifo.WithLock(context.Background(), ex, "outer", func(ctx context.Context) (string, error) {
		return keyfifo.WithLock(ctx, ex, "inner", func(_ context.Context) (string, error) {
			return "nested", nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "nested", res)
}

func Test_Dispose_Idempotent(t *testing.T) {
	ex := keyfifo.New[string]()

	ex.Dispose()
	assert.NotPanics(t, ex.Dispose)
}

func Test_Dispose_PostDisposeRunsImmediately(t *testing.T) {
	ex := keyfifo.New[string]()

	inflightStarted := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = keyfifo.WithLock(context.Background(), ex, "k", func(_ context.Context) (any, error) {
			close(inflightStarted)
			<-release
			return nil, nil
		})
	}()
	<-inflightStarted

	ex.Dispose()

	// Must not wait on the still-running action.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = keyfifo.WithLock(context.Background(), ex, "k", func(_ context.Context) (any, error) {
			return nil, nil
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("post-dispose WithLock blocked on in-flight action")
	}

	close(release)
	wg.Wait()
}

func Test_Executor_PrunesIdleTails(t *testing.T) {
	ex := keyfifo.New[string]()
	defer ex.Dispose()

	for _, key := range []string{"a", "b", "c"} {
		_, err := keyfifo.WithLock(context.Background(), ex, key, func(_ context.Context) (any, error) {
			return nil, nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 0, ex.PendingKeys())
}
