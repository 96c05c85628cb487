package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure IndexStore and Index implement the interfaces.
var (
	_ driven.IndexStore  = (*IndexStore)(nil)
	_ driven.VectorIndex = (*Index)(nil)
)

// IndexStore locates a persisted index in a directory.
type IndexStore struct {
	dir string
}

// NewIndexStore returns a store for dir. If dir is empty, defaults to
// ~/.ragkit/index.
func NewIndexStore(dir string) (*IndexStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".ragkit", "index")
	}
	return &IndexStore{dir: dir}, nil
}

// Location returns the index directory.
func (s *IndexStore) Location() string {
	return s.dir
}

// Exists reports whether an initialised index is present.
func (s *IndexStore) Exists(ctx context.Context) (bool, error) {
	if _, err := os.Stat(filepath.Join(s.dir, DatabaseFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("checking index: %w", err)
	}

	store, err := NewStore(ctx, s.dir)
	if err != nil {
		return false, err
	}
	defer store.Close()

	_, _, ok, err := store.meta(ctx)
	return ok, err
}

// Open loads the index at the location, initialising it with dimension and
// metric when absent.
func (s *IndexStore) Open(ctx context.Context, dimension int, metric domain.Metric) (driven.VectorIndex, error) {
	return s.OpenIndex(ctx, dimension, metric)
}

// OpenIndex is Open returning the concrete type.
func (s *IndexStore) OpenIndex(ctx context.Context, dimension int, metric domain.Metric) (*Index, error) {
	if metric == "" {
		metric = domain.MetricCosine
	}
	mem, err := memory.NewVectorIndex(dimension, metric)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, s.dir)
	if err != nil {
		return nil, err
	}

	idx := &Index{store: store, mem: mem}
	if err := idx.init(ctx, dimension, metric); err != nil {
		store.Close()
		return nil, err
	}
	return idx, nil
}

// Remove deletes the database files.
func (s *IndexStore) Remove(_ context.Context) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Remove(filepath.Join(s.dir, DatabaseFile+suffix))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing index: %w", err)
		}
	}
	return nil
}

// Index is a VectorIndex whose entries are written through to SQLite.
type Index struct {
	// wmu serialises writers so validation, commit and the in-memory
	// insert happen as one step.
	wmu   sync.Mutex
	store *Store
	mem   *memory.VectorIndex
}

func (i *Index) init(ctx context.Context, dimension int, metric domain.Metric) error {
	dim, stored, ok, err := i.store.meta(ctx)
	if err != nil {
		return err
	}

	if !ok {
		_, err := i.store.db.ExecContext(ctx,
			"INSERT INTO index_meta (id, dimension, metric, created_at) VALUES (1, ?, ?, ?)",
			dimension, string(metric), time.Now().UTC())
		if err != nil {
			return fmt.Errorf("writing index meta: %w", err)
		}
		logger.Debug("Created index at %s (dim=%d, metric=%s)", i.store.Path(), dimension, metric)
		return nil
	}

	if dim != dimension {
		return domain.NewConfigurationError("index.dimensions",
			"index at %s has dimension %d, requested %d", i.store.Path(), dim, dimension)
	}
	if domain.Metric(stored) != metric {
		return domain.NewConfigurationError("index.metric",
			"index at %s uses %s, requested %s", i.store.Path(), stored, metric)
	}

	return i.load(ctx)
}

// load replays stored entries into memory in insertion order.
func (i *Index) load(ctx context.Context) error {
	rows, err := i.store.db.QueryContext(ctx, `
		SELECT id, vector, chunk_id, document_id, text, start_offset, end_offset, position, metadata
		FROM entries ORDER BY seq
	`)
	if err != nil {
		return fmt.Errorf("loading entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		if err := i.mem.Insert(ctx, e); err != nil {
			return fmt.Errorf("loading entry %s: %w", e.ID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("loading entries: %w", err)
	}

	logger.Debug("Loaded %d entries from %s", i.mem.Count(), i.store.Path())
	return nil
}

// Insert validates the entry, commits it to SQLite, then makes it searchable.
func (i *Index) Insert(ctx context.Context, e domain.IndexEntry) error {
	i.wmu.Lock()
	defer i.wmu.Unlock()

	e, err := i.mem.Prepare(e)
	if err != nil {
		return err
	}

	metadataJSON, err := json.Marshal(e.Chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	tx, err := i.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	c := e.Chunk
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries (id, vector, chunk_id, document_id, text, start_offset, end_offset, position, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, float32SliceToBytes(e.Vector), c.ID, c.DocumentID, c.Text, c.Start, c.End, c.Position,
		string(metadataJSON)); err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	// The row is committed, so memory must follow even if ctx was cancelled meanwhile.
	return i.mem.Insert(context.WithoutCancel(ctx), e)
}

// Delete removes a single entry.
func (i *Index) Delete(ctx context.Context, id string) error {
	i.wmu.Lock()
	defer i.wmu.Unlock()

	res, err := i.store.db.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	return i.mem.Delete(ctx, id)
}

// DeleteDocument removes every entry of a document.
func (i *Index) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	i.wmu.Lock()
	defer i.wmu.Unlock()

	if _, err := i.store.db.ExecContext(ctx, "DELETE FROM entries WHERE document_id = ?", documentID); err != nil {
		return 0, fmt.Errorf("deleting document entries: %w", err)
	}
	return i.mem.DeleteDocument(ctx, documentID)
}

// Search delegates to the in-memory index.
func (i *Index) Search(ctx context.Context, query []float32, k int, filter domain.Filter) ([]domain.ScoredChunk, error) {
	return i.mem.Search(ctx, query, k, filter)
}

// Count returns the number of entries.
func (i *Index) Count() int {
	return i.mem.Count()
}

// Dimension returns the fixed vector size.
func (i *Index) Dimension() int {
	return i.mem.Dimension()
}

// Metric returns the similarity metric.
func (i *Index) Metric() domain.Metric {
	return i.mem.Metric()
}

// Path returns the database file path.
func (i *Index) Path() string {
	return i.store.Path()
}

// Close releases memory and the database connection.
func (i *Index) Close() error {
	i.wmu.Lock()
	defer i.wmu.Unlock()

	memErr := i.mem.Close()
	return errors.Join(memErr, i.store.Close())
}

func scanEntry(rows *sql.Rows) (domain.IndexEntry, error) {
	var (
		e            domain.IndexEntry
		vector       []byte
		metadataJSON string
	)
	if err := rows.Scan(&e.ID, &vector, &e.Chunk.ID, &e.Chunk.DocumentID, &e.Chunk.Text,
		&e.Chunk.Start, &e.Chunk.End, &e.Chunk.Position, &metadataJSON); err != nil {
		return e, fmt.Errorf("scanning entry: %w", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &e.Chunk.Metadata); err != nil {
		return e, fmt.Errorf("unmarshalling metadata of %s: %w", e.ID, err)
	}
	e.Vector = bytesToFloat32Slice(vector)
	return e, nil
}
