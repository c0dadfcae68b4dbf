package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for running without a database.
// History is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Create appends a record.
func (m *MemoryStore) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	m.records = append(m.records, *rec)
	m.mu.Unlock()
	return nil
}

// ListSince returns the user's records created at or after since.
func (m *MemoryStore) ListSince(_ context.Context, userID string, since time.Time) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.records {
		if rec.UserID == userID && !rec.CreatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// MarkPlayed flags the user's record as played and bumps its play count.
func (m *MemoryStore) MarkPlayed(_ context.Context, userID string, id uuid.UUID, playedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == id && m.records[i].UserID == userID {
			m.records[i].WasPlayed = true
			m.records[i].PlayCount++
			m.records[i].LastPlayedAt = &playedAt
			return nil
		}
	}
	return ErrRecordNotFound
}

// DeleteOlderThan removes records created before the cutoff.
func (m *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var deleted int64
	for _, rec := range m.records {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return deleted, nil
}

var _ Store = (*MemoryStore)(nil)
