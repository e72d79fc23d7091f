// Package session holds the signed-in user's identity on the server side.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"portal/internal/model"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Store persists identities by session id.
type Store interface {
	Put(ctx context.Context, id string, identity model.Identity, ttl time.Duration) error
	Get(ctx context.Context, id string) (model.Identity, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps sessions in process; for dev/testing.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	identity model.Identity
	expires  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, id string, identity model.Identity, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{identity: identity, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return model.Identity{}, ErrNotFound
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, id)
		return model.Identity{}, ErrNotFound
	}
	return e.identity, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// RedisStore keeps sessions as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore stores sessions under prefix; empty means "portal:session:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "portal:session:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Put(ctx context.Context, id string, identity model.Identity, ttl time.Duration) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, s.prefix+id, data, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (model.Identity, error) {
	data, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Identity{}, ErrNotFound
		}
		return model.Identity{}, err
	}
	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return model.Identity{}, fmt.Errorf("decode session: %w", err)
	}
	return identity, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id).Err()
}
