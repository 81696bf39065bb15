package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu              sync.RWMutex
	entries         map[string]memoryEntry
	lastCleanup     time.Time
	cleanupInterval time.Duration
	now             func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:         make(map[string]memoryEntry),
		cleanupInterval: 5 * time.Minute,
		now:             time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || e.expired(m.now()) {
		return nil, ErrMiss
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e := memoryEntry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	m.entries[key] = e

	m.cleanupIfNeeded(now)
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Name implements Store.
func (m *MemoryStore) Name() string {
	return "memory"
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// cleanupIfNeeded removes expired entries. Caller must hold the write lock.
func (m *MemoryStore) cleanupIfNeeded(now time.Time) {
	if now.Sub(m.lastCleanup) < m.cleanupInterval {
		return
	}
	m.lastCleanup = now

	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
		}
	}
}
