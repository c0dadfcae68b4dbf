package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Memory is the default in-process Cache. Entries are small and per-user,
// so there is no size eviction; expiry is lazy on Get.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements Cache. An expired entry is removed as a side effect and
// reported as a miss; nothing can resurrect it.
func (m *Memory) Get(_ context.Context, userID, category string) ([]byte, bool) {
	key := Key(userID, category)

	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a Put may have replaced it.
		if current, ok := m.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, userID, category string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	m.entries[Key(userID, category)] = memoryEntry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
	m.mu.Unlock()
	return nil
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(_ context.Context, userID, category string) error {
	m.mu.Lock()
	delete(m.entries, Key(userID, category))
	m.mu.Unlock()
	return nil
}

// InvalidateUser implements Cache.
func (m *Memory) InvalidateUser(_ context.Context, userID string) error {
	prefix := userID + ":"
	m.mu.Lock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()
	return nil
}

// Sweep removes all expired entries. Optional housekeeping; correctness
// does not depend on it because Get expires lazily.
func (m *Memory) Sweep() int {
	now := m.now()
	removed := 0
	m.mu.Lock()
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	m.mu.Unlock()
	return removed
}
