// Package docstore owns the sports corpus and the named vector collection it
// is indexed into.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/efebarandurmaz/sportsqa/internal/config"
	"github.com/efebarandurmaz/sportsqa/internal/llm"
	"github.com/efebarandurmaz/sportsqa/internal/observability"
	"github.com/efebarandurmaz/sportsqa/internal/vector"
	"github.com/efebarandurmaz/sportsqa/internal/vector/neo4j"
	"github.com/efebarandurmaz/sportsqa/internal/vector/qdrant"
	"github.com/efebarandurmaz/sportsqa/internal/vector/sqlite"
)

// DefaultName is the collection name used when none is configured.
const DefaultName = "docs"

// QueryResult holds parallel slices ordered by increasing distance.
type QueryResult struct {
	IDs       []string
	Documents []string
	Distances []float64
}

// Len returns the number of results.
func (r QueryResult) Len() int { return len(r.IDs) }

// Options configures Initialize.
type Options struct {
	Name     string
	Repo     vector.Repository
	Embedder llm.Embedder
	// Docs defaults to the built-in corpus.
	Docs []Doc
}

// Collection is a handle over an indexed corpus. It is safe for concurrent
// use when the underlying repository is.
type Collection struct {
	name     string
	embedder *vector.Embedder
	docs     []Doc
}

// Initialize creates or fetches the collection and upserts every corpus
// document by ID. Calling it again against the same repository leaves the
// document count unchanged.
func Initialize(ctx context.Context, opts Options) (*Collection, error) {
	if opts.Repo == nil {
		return nil, errors.New("docstore: repository is required")
	}
	if opts.Embedder == nil {
		return nil, errors.New("docstore: embedder is required")
	}
	name := opts.Name
	if name == "" {
		name = DefaultName
	}
	docs := opts.Docs
	if len(docs) == 0 {
		docs = BuiltinCorpus()
	}

	batch := make([]vector.Document, len(docs))
	for i, d := range docs {
		batch[i] = vector.Document{
			ID:       d.ID,
			Content:  d.Text,
			Metadata: map[string]string{"title": d.Title},
		}
	}

	emb := vector.NewEmbedder(opts.Embedder, opts.Repo)
	if err := emb.IndexDocuments(ctx, batch); err != nil {
		return nil, fmt.Errorf("indexing collection %q: %w", name, err)
	}

	return &Collection{name: name, embedder: emb, docs: docs}, nil
}

// Search embeds question and returns up to k nearest documents. k larger
// than the collection returns every document; k <= 0 returns none.
func (c *Collection) Search(ctx context.Context, question string, k int) (QueryResult, error) {
	ctx, span := observability.StartRetrievalSpan(ctx, c.name, k)
	defer span.End()

	matches, err := c.embedder.Query(ctx, question, k)
	if err != nil {
		observability.RecordError(span, err)
		return QueryResult{}, err
	}

	res := QueryResult{
		IDs:       make([]string, len(matches)),
		Documents: make([]string, len(matches)),
		Distances: make([]float64, len(matches)),
	}
	for i, m := range matches {
		res.IDs[i] = m.ID
		res.Documents[i] = m.Content
		res.Distances[i] = m.Distance
	}
	observability.RecordRetrieval(span, res.Distances)
	return res, nil
}

// Count returns the number of stored documents.
func (c *Collection) Count(ctx context.Context) (int, error) {
	return c.embedder.Repository().Count(ctx)
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Documents returns the corpus the collection was built from.
func (c *Collection) Documents() []Doc {
	out := make([]Doc, len(c.docs))
	copy(out, c.docs)
	return out
}

// Close releases the underlying repository.
func (c *Collection) Close() error {
	return c.embedder.Repository().Close()
}

const neo4jConnectTimeout = 10 * time.Second

// OpenRepository opens the vector backend named in cfg.
func OpenRepository(cfg config.VectorConfig) (vector.Repository, error) {
	space, err := vector.ParseSpace(cfg.Space)
	if err != nil {
		return nil, err
	}
	name := cfg.Collection
	if name == "" {
		name = DefaultName
	}

	switch cfg.Backend {
	case "", "memory":
		return vector.NewMemory(space), nil
	case "sqlite":
		repo, err := sqlite.Open(cfg.Path, name, space)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "qdrant":
		repo, err := qdrant.New(cfg.Host, cfg.Port, name, space)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "neo4j":
		ctx, cancel := context.WithTimeout(context.Background(), neo4jConnectTimeout)
		defer cancel()
		repo, err := neo4j.New(ctx, cfg.URI, cfg.Username, cfg.Password, name, space)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
