// Package storage persists session snapshots.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/session"
)

const defaultKeyPrefix = "oncorisk:session:"

// RedisSessionStore keeps snapshots as JSON values that expire after the TTL.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: defaultKeyPrefix, ttl: ttl}
}

func (s *RedisSessionStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisSessionStore) Save(ctx context.Context, snap session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", snap.ID, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"key":  s.key(snap.ID),
		"size": len(data),
	}).Debug("Caching session")

	if err := s.client.Set(ctx, s.key(snap.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session %s: %w", snap.ID, err)
	}
	return nil
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (session.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Snapshot{}, session.ErrNotFound
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return decodeSnapshot(id, data)
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// MemorySessionStore is the single-process fallback when Redis is not configured.
type MemorySessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	items map[string]memoryItem
}

type memoryItem struct {
	data    []byte
	expires time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{ttl: ttl, now: time.Now, items: make(map[string]memoryItem)}
}

func (s *MemorySessionStore) Save(ctx context.Context, snap session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", snap.ID, err)
	}

	item := memoryItem{data: data}
	if s.ttl > 0 {
		item.expires = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.items[snap.ID] = item
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Load(ctx context.Context, id string) (session.Snapshot, error) {
	s.mu.Lock()
	item, ok := s.items[id]
	if ok && !item.expires.IsZero() && s.now().After(item.expires) {
		delete(s.items, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return session.Snapshot{}, session.ErrNotFound
	}
	return decodeSnapshot(id, item.data)
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

func decodeSnapshot(id string, data []byte) (session.Snapshot, error) {
	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return snap, nil
}

// SessionStore is the persistence contract the session registry depends on.
type SessionStore = session.Store

var (
	_ SessionStore = (*RedisSessionStore)(nil)
	_ SessionStore = (*MemorySessionStore)(nil)
)
