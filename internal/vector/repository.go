package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's width differs from the
// collection's.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Document is a text with its embedding, keyed by a caller-chosen ID.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// Match is a single hit from a similarity search. Lower Distance is closer.
type Match struct {
	ID       string
	Content  string
	Distance float64
	Metadata map[string]string
}

// Repository provides vector storage and nearest-neighbour search over one
// named collection.
type Repository interface {
	// EnsureCollection creates the collection if it does not exist. It is a
	// no-op for an existing collection of the same width.
	EnsureCollection(ctx context.Context, dims int) error
	// Upsert inserts or replaces documents by ID.
	Upsert(ctx context.Context, docs []Document) error
	// Search returns up to topK matches ordered by increasing distance.
	Search(ctx context.Context, vector []float32, topK int) ([]Match, error)
	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
	// Close releases resources.
	Close() error
}
