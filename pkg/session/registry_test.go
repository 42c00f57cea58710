package session

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/oncorisk/pkg/riskclient"
)

type mapStore struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
}

func newMapStore() *mapStore {
	return &mapStore{snaps: make(map[string]Snapshot)}
}

func (s *mapStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.ID] = snap
	return nil
}

func (s *mapStore) Load(ctx context.Context, id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (s *mapStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, id)
	return nil
}

func newRegistryFor(t *testing.T, size int, store Store) *Registry {
	t.Helper()
	b := newBackend(t, http.StatusOK, examplePredict, exampleExplain)
	client := riskclient.New(b.URL)
	r, err := NewRegistry(size, store, client, client)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestRegistryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newRegistryFor(t, 4, store)

	c, err := r.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID())
	assert.Equal(t, Idle, c.State())

	got, err := r.Get(ctx, c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, stored := store.snaps[c.ID()]
	assert.True(t, stored)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRestoresEvictedSession(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newRegistryFor(t, 1, store)

	first, err := r.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, first.EditField("Tumor Size", "22"))
	require.NoError(t, first.Predict(ctx))
	require.NoError(t, r.Save(ctx, first))

	second, err := r.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	restored, err := r.Get(ctx, first.ID())
	require.NoError(t, err)
	assert.NotSame(t, first, restored)
	assert.Equal(t, Predicted, restored.State())
	assert.Equal(t, "22", restored.Fields()["Tumor Size"])
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestRegistryUnknownSession(t *testing.T) {
	r := newRegistryFor(t, 2, newMapStore())
	_, err := r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryWithoutStore(t *testing.T) {
	ctx := context.Background()
	r := newRegistryFor(t, 1, nil)

	first, err := r.Create(ctx)
	require.NoError(t, err)
	_, err = r.Create(ctx)
	require.NoError(t, err)

	_, err = r.Get(ctx, first.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryDelete(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	r := newRegistryFor(t, 2, store)

	c, err := r.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, c.ID()))

	_, err = r.Get(ctx, c.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryCloseEndsSessions(t *testing.T) {
	ctx := context.Background()
	r := newRegistryFor(t, 2, nil)

	c, err := r.Create(ctx)
	require.NoError(t, err)
	r.Close()

	assert.ErrorIs(t, c.Predict(ctx), ErrClosed)
}

// gatedStore holds every Load until release is closed.
type gatedStore struct {
	*mapStore
	loading chan string
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		mapStore: newMapStore(),
		loading:  make(chan string, 8),
		release:  make(chan struct{}),
	}
}

func (s *gatedStore) Load(ctx context.Context, id string) (Snapshot, error) {
	s.loading <- id
	<-s.release
	return s.mapStore.Load(ctx, id)
}

func waitLoading(t *testing.T, s *gatedStore) {
	t.Helper()
	select {
	case <-s.loading:
	case <-time.After(2 * time.Second):
		t.Fatal("store load never started")
	}
}

func TestRegistryGetDoesNotWaitOnStoreLoad(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	r := newRegistryFor(t, 4, store)

	live, err := r.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.mapStore.Save(ctx, Snapshot{ID: "stored"}))

	slow := make(chan error, 1)
	go func() {
		_, err := r.Get(ctx, "stored")
		slow <- err
	}()
	waitLoading(t, store)

	fast := make(chan *Controller, 1)
	go func() {
		c, _ := r.Get(ctx, live.ID())
		fast <- c
	}()
	select {
	case c := <-fast:
		assert.Same(t, live, c)
	case <-time.After(2 * time.Second):
		t.Fatal("cached lookup blocked behind a store load")
	}

	close(store.release)
	require.NoError(t, <-slow)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConcurrentRestoreKeepsOneController(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	r := newRegistryFor(t, 4, store)
	require.NoError(t, store.mapStore.Save(ctx, Snapshot{ID: "stored"}))

	results := make(chan *Controller, 2)
	for i := 0; i < 2; i++ {
		go func() {
			c, err := r.Get(ctx, "stored")
			assert.NoError(t, err)
			results <- c
		}()
	}
	waitLoading(t, store)
	waitLoading(t, store)
	close(store.release)

	first, second := <-results, <-results
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, Idle, first.State())
}
