package vector

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/sportsqa/internal/llm"
)

// Embedder wraps an embedding provider to index and query a Repository.
// Vectors are normalized to unit length on both paths, so l2 distances fall
// in [0, 4] whatever model produced them.
type Embedder struct {
	provider llm.Embedder
	repo     Repository
}

// NewEmbedder creates an Embedder.
func NewEmbedder(provider llm.Embedder, repo Repository) *Embedder {
	return &Embedder{provider: provider, repo: repo}
}

// IndexDocuments embeds each document's content, creates the collection on
// first use and upserts the documents by ID.
func (e *Embedder) IndexDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vectors, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}

	out := make([]Document, len(docs))
	for i, d := range docs {
		d.Vector = Normalize(vectors[i])
		out[i] = d
	}

	if err := e.repo.EnsureCollection(ctx, len(out[0].Vector)); err != nil {
		return err
	}
	return e.repo.Upsert(ctx, out)
}

// Query embeds text and returns its topK nearest documents.
func (e *Embedder) Query(ctx context.Context, text string, topK int) ([]Match, error) {
	if topK <= 0 {
		return []Match{}, nil
	}
	vectors, err := e.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want 1", len(vectors))
	}
	return e.repo.Search(ctx, Normalize(vectors[0]), topK)
}

// Repository returns the underlying store.
func (e *Embedder) Repository() Repository { return e.repo }
