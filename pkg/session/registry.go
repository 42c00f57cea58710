package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/observability/metrics"
)

// ErrNotFound is returned for a session id that is neither live nor stored.
var ErrNotFound = errors.New("session not found")

// Store persists session snapshots so sessions survive eviction and restarts.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// Registry keeps a bounded set of live controllers and falls back to the
// store for sessions that were evicted or created by another process.
type Registry struct {
	predictor Predictor
	explainer Explainer
	opts      []Option
	store     Store

	mu    sync.Mutex
	cache *lru.Cache[string, *Controller]
}

func NewRegistry(size int, store Store, predictor Predictor, explainer Explainer, opts ...Option) (*Registry, error) {
	cache, err := lru.NewWithEvict[string, *Controller](size, func(id string, c *Controller) {
		// Closing waits for in-flight requests; do not hold the cache lock for that.
		go c.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Registry{
		predictor: predictor,
		explainer: explainer,
		opts:      opts,
		store:     store,
		cache:     cache,
	}, nil
}

// Create starts a new Idle session.
func (r *Registry) Create(ctx context.Context) (*Controller, error) {
	c := New(uuid.New().String(), r.predictor, r.explainer, r.opts...)
	if err := r.Save(ctx, c); err != nil {
		c.Close()
		return nil, err
	}

	r.mu.Lock()
	r.cache.Add(c.ID(), c)
	metrics.ObserveActiveSessions(r.cache.Len())
	r.mu.Unlock()

	logger.WithField("session_id", c.ID()).Info("Session created")
	return c, nil
}

// Get returns the live controller for id, restoring it from the store if needed.
// The store is read without holding the registry lock.
func (r *Registry) Get(ctx context.Context, id string) (*Controller, error) {
	if c, ok := r.cached(id); ok {
		return c, nil
	}
	if r.store == nil {
		return nil, ErrNotFound
	}

	snap, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	restored, err := Restore(snap, r.predictor, r.explainer, r.opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if c, ok := r.cache.Get(id); ok {
		// Another caller restored it first.
		r.mu.Unlock()
		restored.Close()
		return c, nil
	}
	r.cache.Add(id, restored)
	metrics.ObserveActiveSessions(r.cache.Len())
	r.mu.Unlock()

	logger.WithField("session_id", id).Info("Session restored from store")
	return restored, nil
}

func (r *Registry) cached(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Get(id)
}

// Save persists the controller's current snapshot. Without a store it is a no-op.
func (r *Registry) Save(ctx context.Context, c *Controller) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Save(ctx, c.Snapshot()); err != nil {
		return fmt.Errorf("failed to save session %s: %w", c.ID(), err)
	}
	return nil
}

// Delete ends a session and removes its snapshot.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	r.cache.Remove(id)
	metrics.ObserveActiveSessions(r.cache.Len())
	r.mu.Unlock()

	if r.store == nil {
		return nil
	}
	return r.store.Delete(ctx, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// Close ends every live session.
func (r *Registry) Close() {
	r.mu.Lock()
	live := r.cache.Values()
	r.cache.Purge()
	metrics.ObserveActiveSessions(0)
	r.mu.Unlock()

	for _, c := range live {
		c.Close()
	}
}
