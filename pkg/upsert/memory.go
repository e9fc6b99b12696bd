package upsert

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository. The first row stored for a
// key wins, matching an insert that ignores conflicts.
type MemoryRepository[R Keyed] struct {
	mu   sync.Mutex
	rows map[Key]stored[R]

	// Inserts counts rows actually inserted.
	Inserts int
	// Lookups counts FindIDs calls.
	Lookups int
}

type stored[R Keyed] struct {
	id  uuid.UUID
	row R
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository[R Keyed]() *MemoryRepository[R] {
	return &MemoryRepository[R]{rows: make(map[Key]stored[R])}
}

func (m *MemoryRepository[R]) InsertIgnoringConflicts(_ context.Context, rows []R) (map[Key]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := make(map[Key]uuid.UUID)
	for _, r := range rows {
		k := r.NaturalKey()
		if _, ok := m.rows[k]; ok {
			continue
		}
		id := uuid.New()
		m.rows[k] = stored[R]{id: id, row: r}
		inserted[k] = id
		m.Inserts++
	}
	return inserted, nil
}

func (m *MemoryRepository[R]) FindIDs(_ context.Context, keys []Key) (map[Key]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Lookups++
	found := make(map[Key]uuid.UUID, len(keys))
	for _, k := range keys {
		if s, ok := m.rows[k]; ok {
			found[k] = s.id
		}
	}
	return found, nil
}

// Get returns the stored row for a key.
func (m *MemoryRepository[R]) Get(k Key) (R, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[k]
	return s.row, ok
}

// Len returns the number of stored rows.
func (m *MemoryRepository[R]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
