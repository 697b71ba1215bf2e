// Package cache stores short-lived JSON values such as leaderboard pages.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Cache interface {
	// Get decodes the cached value into dest and reports whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type memItem struct {
	raw     []byte
	expires time.Time
}

// Memory is a process-local Cache. Values are stored encoded so callers never
// share state with the cache.
type Memory struct {
	mu    sync.Mutex
	clock clockwork.Clock
	items map[string]memItem
}

func NewMemory() *Memory {
	return NewMemoryWithClock(clockwork.NewRealClock())
}

func NewMemoryWithClock(clock clockwork.Clock) *Memory {
	return &Memory{clock: clock, items: map[string]memItem{}}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	it, ok := m.items[key]
	if ok && !it.expires.IsZero() && !m.clock.Now().Before(it.expires) {
		delete(m.items, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(it.raw, dest)
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	it := memItem{raw: raw}
	if ttl > 0 {
		it.expires = m.clock.Now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}
