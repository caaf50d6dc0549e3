package store

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is a process-local TokenStore. It holds at most size sessions; the least
// recently used one is evicted first, and every entry expires ttl after it was put.
type MemoryStore struct {
	cache *expirable.LRU[string, string]
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 1
	}
	return &MemoryStore{cache: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (string, error) {
	token, ok := m.cache.Get(sessionID)
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

func (m *MemoryStore) Put(_ context.Context, sessionID, token string) error {
	m.cache.Add(sessionID, token)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.cache.Remove(sessionID)
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

func (m *MemoryStore) Backend() string { return "memory" }

func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
