package session

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingObserver struct {
	release chan struct{}
	mu      sync.Mutex
	seen    []EventType
}

func newBlockingObserver() *blockingObserver {
	return &blockingObserver{release: make(chan struct{})}
}

func (b *blockingObserver) Observe(ctx context.Context, e Event) {
	<-b.release
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, e.Type)
}

func (b *blockingObserver) types() []EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]EventType(nil), b.seen...)
}

func TestAsyncObserverDoesNotBlockSettlement(t *testing.T) {
	b := newBackend(t, http.StatusOK, examplePredict, exampleExplain)
	sink := newBlockingObserver()
	async := NewAsyncObserver("slow", sink, 8)
	c := newControllerFor(t, b, WithObserver(async))

	done := make(chan error, 1)
	go func() { done <- c.Predict(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("predict waited on a slow observer")
	}
	assert.Equal(t, Predicted, c.State())
	assert.Empty(t, sink.types())

	close(sink.release)
	require.NoError(t, async.Close())
	assert.Equal(t, []EventType{EventPredicted}, sink.types())
}

func TestAsyncObserverPreservesOrderAndDrainsOnClose(t *testing.T) {
	sink := newBlockingObserver()
	async := NewAsyncObserver("ordered", sink, 8)

	want := []EventType{EventPredicted, EventExplained, EventInvalidated, EventFailed}
	for _, typ := range want {
		async.Observe(context.Background(), Event{Type: typ})
	}
	close(sink.release)
	require.NoError(t, async.Close())

	assert.Equal(t, want, sink.types())

	async.Observe(context.Background(), Event{Type: EventStale})
	require.NoError(t, async.Close())
	assert.Equal(t, want, sink.types())
}

func TestAsyncObserverDropsWhenQueueFull(t *testing.T) {
	sink := newBlockingObserver()
	async := NewAsyncObserver("full", sink, 1)

	// The first event is taken by the worker and blocks there; the second
	// fills the queue.
	async.Observe(context.Background(), Event{Type: EventPredicted})
	require.Eventually(t, func() bool { return len(async.queue) == 0 }, time.Second, time.Millisecond)
	async.Observe(context.Background(), Event{Type: EventExplained})

	returned := make(chan struct{})
	go func() {
		async.Observe(context.Background(), Event{Type: EventFailed})
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("observe blocked on a full queue")
	}

	close(sink.release)
	require.NoError(t, async.Close())
	assert.Equal(t, []EventType{EventPredicted, EventExplained}, sink.types())
}
