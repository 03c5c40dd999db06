// Package vectorindex is the persistent {id -> (model, vector)} store and
// its exact (not approximate) top-k nearest-neighbour search: a streaming
// scan over a bounded max-heap, never materialising the whole table in
// memory.
package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/alexgetty/roux/internal/heap"
	"github.com/alexgetty/roux/internal/mathkernel"
	"github.com/alexgetty/roux/internal/rerrors"
)

// SearchResult is one ranked hit: id and its cosine distance to the query
// (smaller is nearer).
type SearchResult struct {
	ID       string
	Distance float64
}

// VectorIndex is the SQLite-backed embedding store.
type VectorIndex struct {
	mu   sync.RWMutex
	db   *sql.DB
	lock *flock.Flock
}

// Open creates or opens the vector index at path. path may be ":memory:"
// for a transient, single-process index.
func Open(path string) (*VectorIndex, error) {
	dsn := path
	var fl *flock.Flock

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, rerrors.Provider("cannot create vector index directory", err)
		}

		fl = flock.New(path + ".lock")
		locked, err := fl.TryLock()
		if err != nil {
			return nil, rerrors.Provider("cannot acquire vector index lock", err)
		}
		if !locked {
			return nil, rerrors.Provider("vector index is already open by another process", nil).
				WithDetail("path", path)
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		unlockIfHeld(fl)
		return nil, rerrors.Provider("failed to open vector index database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			unlockIfHeld(fl)
			return nil, rerrors.Provider("failed to set vector index pragma", err)
		}
	}

	vi := &VectorIndex{db: db, lock: fl}
	if err := vi.initSchema(); err != nil {
		_ = db.Close()
		unlockIfHeld(fl)
		return nil, err
	}
	return vi, nil
}

func unlockIfHeld(fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}

func (vi *VectorIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vectors (
		id        TEXT PRIMARY KEY,
		model     TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		vector    BLOB NOT NULL
	);
	`
	if _, err := vi.db.Exec(schema); err != nil {
		return rerrors.Provider("failed to initialize vector index schema", err)
	}
	return nil
}

// Close releases the database connection and advisory lock.
func (vi *VectorIndex) Close() error {
	vi.mu.Lock()
	defer vi.mu.Unlock()

	err := vi.db.Close()
	unlockIfHeld(vi.lock)
	if err != nil {
		return rerrors.Provider("failed to close vector index database", err)
	}
	return nil
}

// Store upserts the embedding for id. Rejects empty vectors with
// InvalidInput, and rejects a dimension that disagrees with any other
// stored row with DimensionMismatch. The write is atomic: model and
// vector are always replaced together, never partially.
func (vi *VectorIndex) Store(ctx context.Context, id string, vector []float32, model string) error {
	if len(vector) == 0 {
		return rerrors.Invalid("vector must not be empty")
	}

	vi.mu.Lock()
	defer vi.mu.Unlock()

	var existingDim int
	row := vi.db.QueryRowContext(ctx, "SELECT dimension FROM vectors WHERE id != ? LIMIT 1", id)
	err := row.Scan(&existingDim)
	if err != nil && err != sql.ErrNoRows {
		return rerrors.Provider("failed to check vector dimension", err)
	}
	if err == nil && existingDim != len(vector) {
		return rerrors.DimensionErr(existingDim, len(vector))
	}

	_, err = vi.db.ExecContext(ctx, `
		INSERT INTO vectors (id, model, dimension, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			dimension = excluded.dimension,
			vector = excluded.vector
	`, id, model, len(vector), encodeVector(vector))
	if err != nil {
		return rerrors.Provider("failed to store vector for "+id, err)
	}
	return nil
}

// Search returns the limit nearest neighbours of query, ordered by
// cosine distance ascending and tie-broken by id ascending. limit <= 0
// yields an empty slice. The table is scanned as a stream: a bounded
// max-heap of size limit is maintained, and the row cursor is never
// buffered into a full in-memory slice.
func (vi *VectorIndex) Search(ctx context.Context, query []float32, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		return []SearchResult{}, nil
	}

	vi.mu.RLock()
	defer vi.mu.RUnlock()

	var indexDim int
	row := vi.db.QueryRowContext(ctx, "SELECT dimension FROM vectors LIMIT 1")
	err := row.Scan(&indexDim)
	if err == sql.ErrNoRows {
		return []SearchResult{}, nil
	}
	if err != nil {
		return nil, rerrors.Provider("failed to inspect vector index dimension", err)
	}
	if len(query) != indexDim {
		return nil, rerrors.DimensionErr(indexDim, len(query))
	}

	rows, err := vi.db.QueryContext(ctx, "SELECT id, vector FROM vectors")
	if err != nil {
		return nil, rerrors.Provider("failed to scan vector index", err)
	}
	defer rows.Close()

	// worst-at-root: the candidate to evict first is the one with the
	// largest distance, tie-broken by the largest id (so the smaller id
	// survives a tie, matching the final sort's tie-break).
	h := heap.New(func(a, b SearchResult) bool {
		if a.Distance != b.Distance {
			return a.Distance > b.Distance
		}
		return a.ID > b.ID
	})

	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, rerrors.Provider("failed to scan vector row", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		dist, err := mathkernel.CosineDistance(query, vec)
		if err != nil {
			return nil, err
		}

		h.PushBounded(SearchResult{ID: id, Distance: dist}, limit)
	}
	if err := rows.Err(); err != nil {
		return nil, rerrors.Provider("failed while iterating vector index", err)
	}

	out := h.ToArray()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes the embedding for id, if present.
func (vi *VectorIndex) Delete(ctx context.Context, id string) error {
	vi.mu.Lock()
	defer vi.mu.Unlock()

	if _, err := vi.db.ExecContext(ctx, "DELETE FROM vectors WHERE id = ?", id); err != nil {
		return rerrors.Provider("failed to delete vector for "+id, err)
	}
	return nil
}

// GetModel returns the model that produced id's stored embedding, and
// whether one exists.
func (vi *VectorIndex) GetModel(ctx context.Context, id string) (string, bool, error) {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	var model string
	err := vi.db.QueryRowContext(ctx, "SELECT model FROM vectors WHERE id = ?", id).Scan(&model)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, rerrors.Provider("failed to query model for "+id, err)
	}
	return model, true, nil
}

// HasEmbedding reports whether id has a stored embedding.
func (vi *VectorIndex) HasEmbedding(ctx context.Context, id string) (bool, error) {
	_, ok, err := vi.GetModel(ctx, id)
	return ok, err
}

// Count returns the number of stored embeddings.
func (vi *VectorIndex) Count(ctx context.Context) (int, error) {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	var n int
	if err := vi.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, rerrors.Provider("failed to count vectors", err)
	}
	return n, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, rerrors.InternalErr("vector blob length not a multiple of 4", nil)
	}
	n := len(b) / 4
	v := make([]float32, n)
	for i := range v {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		v[i] = math.Float32frombits(bits)
	}
	return v, nil
}
