package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vzahanych/balloon-atlas/internal/config"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a process-local Store. Expired entries are removed lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	clock   clockwork.Clock
}

func NewMemory(ttl time.Duration) *Memory {
	return NewMemoryWithClock(ttl, clockwork.NewRealClock())
}

func NewMemoryWithClock(ttl time.Duration, clock clockwork.Clock) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !m.clock.Now().Before(e.expiresAt) {
		m.mu.Lock()
		// another writer may have refreshed the entry in between
		if cur, ok := m.entries[key]; ok && !m.clock.Now().Before(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: m.clock.Now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) FlushAll(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	return nil
}

// Len counts unexpired entries.
func (m *Memory) Len(_ context.Context) (int, error) {
	now := m.clock.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) Ping(_ context.Context) error {
	return nil
}

func (m *Memory) TTL() time.Duration {
	return m.ttl
}

func (m *Memory) Backend() string {
	return config.CacheBackendMemory
}
