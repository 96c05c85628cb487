package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an exact, brute-force vector index.
// Entries are kept in insertion order so equal scores rank the earlier entry first.
type VectorIndex struct {
	mu      sync.RWMutex
	dim     int
	metric  domain.Metric
	entries []entry
	byID    map[string]int
	keys    map[string]int
	closed  bool
}

type entry struct {
	item domain.IndexEntry
	norm float64
}

// NewVectorIndex creates an empty index of the given dimension.
func NewVectorIndex(dimension int, metric domain.Metric) (*VectorIndex, error) {
	if dimension <= 0 {
		return nil, domain.NewConfigurationError("index.dimensions", "must be positive, got %d", dimension)
	}
	if metric == "" {
		metric = domain.MetricCosine
	}
	if !metric.IsValid() {
		return nil, domain.NewConfigurationError("index.metric", "unsupported metric %q", metric)
	}
	return &VectorIndex{
		dim:    dimension,
		metric: metric,
		byID:   make(map[string]int),
		keys:   make(map[string]int),
	}, nil
}

// Prepare validates entry against the index without inserting it and
// returns it with an ID assigned. Persistent wrappers call it before
// writing to storage.
func (v *VectorIndex) Prepare(e domain.IndexEntry) (domain.IndexEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.prepareLocked(e)
}

func (v *VectorIndex) prepareLocked(e domain.IndexEntry) (domain.IndexEntry, error) {
	if v.closed {
		return e, domain.ErrIndexClosed
	}
	if len(e.Vector) != v.dim {
		return e, &domain.ValidationError{
			Op:  "insert",
			Err: fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(e.Vector), v.dim),
		}
	}
	if e.ID == "" {
		e.ID = e.Chunk.ID
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, dup := v.byID[e.ID]; dup {
		return e, &domain.ValidationError{Op: "insert", Err: fmt.Errorf("entry %s: %w", e.ID, domain.ErrAlreadyExists)}
	}
	return e, nil
}

// Insert adds an entry. The vector and metadata are copied.
func (v *VectorIndex) Insert(ctx context.Context, e domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	e, err := v.prepareLocked(e)
	if err != nil {
		return err
	}

	e.Vector = append([]float32(nil), e.Vector...)
	e.Chunk.Metadata = e.Chunk.Metadata.Clone()

	v.byID[e.ID] = len(v.entries)
	v.entries = append(v.entries, entry{item: e, norm: norm(e.Vector)})
	for k := range e.Chunk.Metadata.Extra {
		v.keys[k]++
	}
	return nil
}

// Delete removes a single entry.
func (v *VectorIndex) Delete(_ context.Context, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return domain.ErrIndexClosed
	}
	if _, ok := v.byID[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
	}
	v.removeLocked(func(e domain.IndexEntry) bool { return e.ID == id })
	return nil
}

// DeleteDocument removes every entry belonging to documentID.
func (v *VectorIndex) DeleteDocument(_ context.Context, documentID string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, domain.ErrIndexClosed
	}
	return v.removeLocked(func(e domain.IndexEntry) bool { return e.Chunk.DocumentID == documentID }), nil
}

func (v *VectorIndex) removeLocked(match func(domain.IndexEntry) bool) int {
	kept := v.entries[:0]
	removed := 0
	for _, e := range v.entries {
		if match(e.item) {
			removed++
			for k := range e.item.Chunk.Metadata.Extra {
				if v.keys[k]--; v.keys[k] == 0 {
					delete(v.keys, k)
				}
			}
			continue
		}
		kept = append(kept, e)
	}
	clear(v.entries[len(kept):])
	v.entries = kept

	v.byID = make(map[string]int, len(kept))
	for i, e := range kept {
		v.byID[e.item.ID] = i
	}
	return removed
}

// Search scores every entry passing filter and returns the best k.
func (v *VectorIndex) Search(ctx context.Context, query []float32, k int, filter domain.Filter) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, domain.ErrIndexClosed
	}
	if len(v.entries) == 0 || k <= 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(query) != v.dim {
		return nil, &domain.ValidationError{
			Op:  "search",
			Err: fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(query), v.dim),
		}
	}
	for _, key := range filter.Keys() {
		if !v.knownKeyLocked(key) {
			return nil, &domain.ValidationError{
				Op:  "search",
				Err: fmt.Errorf("%w: %s (known: %s)", domain.ErrUnknownFilterKey, key, strings.Join(v.filterKeysLocked(), ", ")),
			}
		}
	}

	qnorm := norm(query)
	hits := make([]domain.ScoredChunk, 0, len(v.entries))
	for _, e := range v.entries {
		if !filter.Matches(e.item.Chunk.Metadata) {
			continue
		}
		hits = append(hits, domain.ScoredChunk{
			Chunk: e.item.Chunk,
			Score: v.score(query, qnorm, e),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Chunk.Metadata = hits[i].Chunk.Metadata.Clone()
	}
	return hits, nil
}

func (v *VectorIndex) knownKeyLocked(key string) bool {
	if key == domain.MetaSource || key == domain.MetaCategory {
		return true
	}
	return v.keys[key] > 0
}

// filterKeysLocked returns the metadata keys that may appear in a filter,
// required keys first and the rest sorted.
func (v *VectorIndex) filterKeysLocked() []string {
	keys := []string{domain.MetaCategory, domain.MetaSource}
	for k := range v.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys[2:])
	return keys
}

// snapshot returns a copy of all entries in insertion order.
func (v *VectorIndex) snapshot() []domain.IndexEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]domain.IndexEntry, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.item
	}
	return out
}

// Count returns the number of entries.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Dimension returns the fixed vector size.
func (v *VectorIndex) Dimension() int {
	return v.dim
}

// Metric returns the similarity metric.
func (v *VectorIndex) Metric() domain.Metric {
	return v.metric
}

// Close drops all entries. Further calls fail with domain.ErrIndexClosed.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.entries = nil
	v.byID = nil
	v.keys = nil
	return nil
}

func (v *VectorIndex) score(query []float32, qnorm float64, e entry) float64 {
	switch v.metric {
	case domain.MetricEuclidean:
		var sum float64
		for i, q := range query {
			d := float64(q) - float64(e.item.Vector[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	default:
		if qnorm == 0 || e.norm == 0 {
			return 0
		}
		var dot float64
		for i, q := range query {
			dot += float64(q) * float64(e.item.Vector[i])
		}
		return dot / (qnorm * e.norm)
	}
}

func norm(vec []float32) float64 {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
