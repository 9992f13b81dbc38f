// Package sqlite implements vector.Repository on SQLite with brute-force
// nearest-neighbour search in Go.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/efebarandurmaz/sportsqa/internal/vector"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name  TEXT PRIMARY KEY,
	dims  INTEGER NOT NULL,
	space TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	collection    TEXT NOT NULL,
	id            TEXT NOT NULL,
	content       TEXT NOT NULL,
	vector        BLOB NOT NULL,
	metadata_json TEXT,
	PRIMARY KEY (collection, id)
);
`

// Repository stores one collection's vectors in a SQLite database. Several
// collections may share a file.
type Repository struct {
	db         *sql.DB
	collection string
	space      vector.Space

	mu   sync.RWMutex
	dims int
}

// Open opens (or creates) the database at path. An empty path uses a
// private in-memory database.
func Open(path, collection string, space vector.Space) (*Repository, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}

	return &Repository{db: db, collection: collection, space: space}, nil
}

func (r *Repository) EnsureCollection(ctx context.Context, dims int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var existing int
	var space string
	err := r.db.QueryRowContext(ctx,
		`SELECT dims, space FROM collections WHERE name = ?`, r.collection,
	).Scan(&existing, &space)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO collections (name, dims, space) VALUES (?, ?, ?)`,
			r.collection, dims, string(r.space),
		); err != nil {
			return fmt.Errorf("sqlite: create collection %s: %w", r.collection, err)
		}
	case err != nil:
		return fmt.Errorf("sqlite: read collection %s: %w", r.collection, err)
	case existing != dims:
		return fmt.Errorf("%w: collection %s has %d, got %d", vector.ErrDimensionMismatch, r.collection, existing, dims)
	case vector.Space(space) != r.space:
		return fmt.Errorf("sqlite: collection %s uses space %s, configured %s", r.collection, space, r.space)
	}

	r.dims = dims
	return nil
}

func (r *Repository) Upsert(ctx context.Context, docs []vector.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO embeddings (collection, id, content, vector, metadata_json)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("sqlite upsert: empty document ID")
		}
		if r.dims != 0 && len(d.Vector) != r.dims {
			return fmt.Errorf("%w: document %s has %d, collection has %d", vector.ErrDimensionMismatch, d.ID, len(d.Vector), r.dims)
		}
		meta, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite upsert: encode metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.collection, d.ID, d.Content, encodeVector(d.Vector), string(meta)); err != nil {
			return fmt.Errorf("sqlite upsert %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

func (r *Repository) Search(ctx context.Context, query []float32, topK int) ([]vector.Match, error) {
	if topK <= 0 {
		return []vector.Match{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, content, vector, metadata_json FROM embeddings WHERE collection = ?`, r.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var (
			id, content string
			blob        []byte
			metaJSON    sql.NullString
		)
		if err := rows.Scan(&id, &content, &blob, &metaJSON); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("sqlite: document %s: %w", id, err)
		}
		dist, err := r.space.Distance(query, vec)
		if err != nil {
			return nil, err
		}
		var meta map[string]string
		if metaJSON.Valid && metaJSON.String != "" {
			_ = json.Unmarshal([]byte(metaJSON.String), &meta)
		}
		matches = append(matches, vector.Match{ID: id, Content: content, Distance: dist, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return vector.TopK(matches, topK), nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE collection = ?`, r.collection).Scan(&n)
	return n, err
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// encodeVector stores float32 values little-endian, four bytes each.
func encodeVector(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

var _ vector.Repository = (*Repository)(nil)
