package vector

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository is an in-process Repository. Contents live as long as the
// process.
type MemoryRepository struct {
	space Space

	mu   sync.RWMutex
	dims int
	docs map[string]Document
}

// NewMemory creates an empty in-memory repository.
func NewMemory(space Space) *MemoryRepository {
	return &MemoryRepository{
		space: space,
		docs:  make(map[string]Document),
	}
}

func (m *MemoryRepository) EnsureCollection(_ context.Context, dims int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dims != 0 && m.dims != dims {
		return fmt.Errorf("%w: collection has %d, got %d", ErrDimensionMismatch, m.dims, dims)
	}
	m.dims = dims
	return nil
}

func (m *MemoryRepository) Upsert(_ context.Context, docs []Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("memory upsert: empty document ID")
		}
		if m.dims == 0 {
			m.dims = len(d.Vector)
		}
		if len(d.Vector) != m.dims {
			return fmt.Errorf("%w: document %s has %d, collection has %d", ErrDimensionMismatch, d.ID, len(d.Vector), m.dims)
		}
		vec := make([]float32, len(d.Vector))
		copy(vec, d.Vector)
		d.Vector = vec
		m.docs[d.ID] = d
	}
	return nil
}

func (m *MemoryRepository) Search(_ context.Context, query []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	return rank(m.space, query, docs, topK)
}

func (m *MemoryRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

func (m *MemoryRepository) Close() error { return nil }

var _ Repository = (*MemoryRepository)(nil)
