// Package cache provides the response cache used by the request client.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// Memory is an in-process TTL cache. Entries are never written to disk;
// building data must not be cached offline.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

type entry struct {
	val     []byte
	expires time.Time
}

// NewMemory creates a Memory cache with the given entry TTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Memory{ttl: ttl, entries: make(map[string]entry)}
}

func (m *Memory) GetCache(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return e.val, true
}

func (m *Memory) SetCache(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Opportunistic pruning keeps the map bounded on long runs.
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
		}
	}

	m.entries[key] = entry{val: val, expires: now.Add(m.ttl)}
	return nil
}

// Noop is a Cacher that never stores anything.
type Noop struct{}

func (Noop) GetCache(context.Context, string) ([]byte, bool) { return nil, false }
func (Noop) SetCache(context.Context, string, []byte) error  { return nil }
