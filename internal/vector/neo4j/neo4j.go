// Package neo4j stores the collection as Neo4j nodes searched through a
// native vector index (Neo4j 5.13 or later).
package neo4j

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/sportsqa/internal/vector"
)

// Repository implements vector.Repository using Neo4j.
type Repository struct {
	driver     neo4j.DriverWithContext
	collection string
	label      string
	index      string
	space      vector.Space
}

// New connects to Neo4j and verifies connectivity.
func New(ctx context.Context, uri, username, password, collection string, space vector.Space) (*Repository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	label := Label(collection)
	return &Repository{
		driver:     driver,
		collection: collection,
		label:      label,
		index:      strings.ToLower(label) + "_embedding",
		space:      space,
	}, nil
}

// Label returns the node label holding a collection's documents. Characters
// Cypher does not allow in bare identifiers become underscores.
func Label(collection string) string {
	var b strings.Builder
	b.WriteString("Doc_")
	for _, r := range collection {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// similarityFunction picks the index function. Neo4j has no dot-product
// index; on unit vectors cosine ranks identically.
func similarityFunction(space vector.Space) string {
	if space == vector.SpaceL2 {
		return "euclidean"
	}
	return "cosine"
}

// toDistance maps a Neo4j similarity score onto the lower-is-closer scale.
// Neo4j reports euclidean as 1/(1+d²) and cosine as (1+cos)/2.
func toDistance(space vector.Space, score float64) float64 {
	if space == vector.SpaceL2 {
		if score <= 0 {
			return 0
		}
		return 1/score - 1
	}
	return 2 * (1 - score)
}

func (r *Repository) EnsureCollection(ctx context.Context, dims int) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	existing, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"SHOW VECTOR INDEXES YIELD name, options WHERE name = $name RETURN options",
			map[string]any{"name": r.index})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return int64(0), res.Err()
		}
		opts, _ := res.Record().Get("options")
		return indexDimensions(opts), nil
	})
	if err != nil {
		return fmt.Errorf("neo4j: inspect index %s: %w", r.index, err)
	}
	if size := existing.(int64); size != 0 {
		if size != int64(dims) {
			return fmt.Errorf("%w: collection %s has %d, got %d", vector.ErrDimensionMismatch, r.collection, size, dims)
		}
		return nil
	}

	// Index options cannot be parameters; dims is an int and the label is
	// sanitized by Label.
	create := fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (d:%s) ON d.embedding "+
			"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: '%s'}}",
		r.index, r.label, dims, similarityFunction(r.space))
	if _, err := session.Run(ctx, create, nil); err != nil {
		return fmt.Errorf("neo4j: create index %s: %w", r.index, err)
	}
	if _, err := session.Run(ctx, "CALL db.awaitIndexes()", nil); err != nil {
		return fmt.Errorf("neo4j: await index %s: %w", r.index, err)
	}
	return nil
}

func indexDimensions(opts any) int64 {
	m, ok := opts.(map[string]any)
	if !ok {
		return 0
	}
	cfg, ok := m["indexConfig"].(map[string]any)
	if !ok {
		return 0
	}
	n, _ := cfg["vector.dimensions"].(int64)
	return n
}

func (r *Repository) Upsert(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}
	rows := make([]any, len(docs))
	for i, d := range docs {
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("neo4j: encode metadata of %s: %w", d.ID, err)
		}
		emb := make([]float64, len(d.Vector))
		for j, v := range d.Vector {
			emb[j] = float64(v)
		}
		rows[i] = map[string]any{
			"id":       d.ID,
			"content":  d.Content,
			"metadata": string(meta),
			"vector":   emb,
		}
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"UNWIND $rows AS row "+
				"MERGE (d:"+r.label+" {doc_id: row.id}) "+
				"SET d.content = row.content, d.metadata = row.metadata, d.embedding = row.vector",
			map[string]any{"rows": rows})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("neo4j upsert: %w", err)
	}
	return nil
}

func (r *Repository) Search(ctx context.Context, vec []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		return []vector.Match{}, nil
	}
	query := make([]float64, len(vec))
	for i, v := range vec {
		query[i] = float64(v)
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node, score "+
				"RETURN node.doc_id AS id, node.content AS content, node.metadata AS metadata, score",
			map[string]any{"index": r.index, "k": topK, "vector": query})
		if err != nil {
			return nil, err
		}

		var matches []vector.Match
		for records.Next(ctx) {
			rec := records.Record()
			id, _ := rec.Get("id")
			content, _ := rec.Get("content")
			meta, _ := rec.Get("metadata")
			score, _ := rec.Get("score")

			m := vector.Match{}
			m.ID, _ = id.(string)
			m.Content, _ = content.(string)
			if s, ok := score.(float64); ok {
				m.Distance = toDistance(r.space, s)
			}
			if raw, ok := meta.(string); ok && raw != "" && raw != "null" {
				if err := json.Unmarshal([]byte(raw), &m.Metadata); err != nil {
					return nil, fmt.Errorf("decode metadata of %s: %w", m.ID, err)
				}
			}
			matches = append(matches, m)
		}
		return matches, records.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j search: %w", err)
	}
	return vector.TopK(result.([]vector.Match), topK), nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (d:"+r.label+") RETURN count(d) AS n", nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := rec.Get("n")
		return n, nil
	})
	if err != nil {
		return 0, fmt.Errorf("neo4j count: %w", err)
	}
	n, _ := result.(int64)
	return int(n), nil
}

func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

var _ vector.Repository = (*Repository)(nil)
