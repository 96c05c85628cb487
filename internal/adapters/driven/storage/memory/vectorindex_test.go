package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

func newEntry(id string, vec []float32, category string) domain.IndexEntry {
	return domain.IndexEntry{
		ID:     id,
		Vector: vec,
		Chunk: domain.Chunk{
			ID:         id,
			DocumentID: "doc-" + id,
			Text:       "text " + id,
			Metadata:   domain.Metadata{Source: id + ".txt", Category: category},
		},
	}
}

func newIndex(t *testing.T, dim int) *VectorIndex {
	t.Helper()
	idx, err := NewVectorIndex(dim, domain.MetricCosine)
	require.NoError(t, err)
	return idx
}

func TestNewVectorIndex(t *testing.T) {
	t.Run("invalid dimension", func(t *testing.T) {
		_, err := NewVectorIndex(0, domain.MetricCosine)
		var cfgErr *domain.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalid metric", func(t *testing.T) {
		_, err := NewVectorIndex(3, domain.Metric("dot"))
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("defaults to cosine", func(t *testing.T) {
		idx, err := NewVectorIndex(3, "")
		require.NoError(t, err)
		assert.Equal(t, domain.MetricCosine, idx.Metric())
		assert.Equal(t, 3, idx.Dimension())
	})
}

func TestInsert_DimensionMismatch(t *testing.T) {
	idx := newIndex(t, 8)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, newEntry("a", make([]float32, 8), "x")))

	err := idx.Insert(ctx, newEntry("b", make([]float32, 5), "x"))

	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 1, idx.Count())
}

func TestInsert_DuplicateID(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, newEntry("a", []float32{1, 0}, "x")))

	err := idx.Insert(ctx, newEntry("a", []float32{0, 1}, "x"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, 1, idx.Count())
}

func TestInsert_AssignsID(t *testing.T) {
	idx := newIndex(t, 2)
	e := newEntry("", []float32{1, 0}, "x")
	e.Chunk.ID = ""
	require.NoError(t, idx.Insert(context.Background(), e))

	entries := idx.snapshot()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
}

func TestInsert_CopiesVector(t *testing.T) {
	idx := newIndex(t, 2)
	vec := []float32{1, 0}
	require.NoError(t, idx.Insert(context.Background(), newEntry("a", vec, "x")))
	vec[0] = -1

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 1, domain.Filter{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := newIndex(t, 3)

	hits, err := idx.Search(context.Background(), []float32{1, 2, 3}, 3, domain.Filter{})
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearch_RanksByCosine(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, newEntry("far", []float32{0, 1}, "x")))
	require.NoError(t, idx.Insert(ctx, newEntry("near", []float32{1, 0.1}, "x")))
	require.NoError(t, idx.Insert(ctx, newEntry("mid", []float32{1, 1}, "x")))

	hits, err := idx.Search(ctx, []float32{1, 0}, 3, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "near", hits[0].Chunk.ID)
	assert.Equal(t, "mid", hits[1].Chunk.ID)
	assert.Equal(t, "far", hits[2].Chunk.ID)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-6)
}

func TestSearch_Euclidean(t *testing.T) {
	idx, err := NewVectorIndex(2, domain.MetricEuclidean)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, newEntry("a", []float32{3, 4}, "x")))
	require.NoError(t, idx.Insert(ctx, newEntry("b", []float32{1, 0}, "x")))

	hits, err := idx.Search(ctx, []float32{0, 0}, 2, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "b", hits[0].Chunk.ID)
	assert.InDelta(t, -1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, -5.0, hits[1].Score, 1e-6)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, idx.Insert(ctx, newEntry(id, []float32{2, 2}, "x")))
	}

	hits, err := idx.Search(ctx, []float32{1, 1}, 2, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].Chunk.ID)
	assert.Equal(t, "second", hits[1].Chunk.ID)
}

func TestSearch_Properties(t *testing.T) {
	idx := newIndex(t, 4)
	ctx := context.Background()
	for i := 0; i < 40; i++ {
		vec := []float32{float32(i % 7), float32(i % 3), float32(i % 5), 1}
		require.NoError(t, idx.Insert(ctx, newEntry(fmt.Sprintf("e%02d", i), vec, "x")))
	}

	for _, k := range []int{1, 3, 10, 100} {
		hits, err := idx.Search(ctx, []float32{1, 2, 3, 4}, k, domain.Filter{})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(hits), k)
		assert.LessOrEqual(t, len(hits), idx.Count())

		seen := map[string]bool{}
		for i, h := range hits {
			assert.False(t, seen[h.Chunk.ID], "duplicate %s", h.Chunk.ID)
			seen[h.Chunk.ID] = true
			if i > 0 {
				assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
			}
		}
	}
}

func TestSearch_Filter(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, newEntry("m1", []float32{1, 0}, "meeting")))
	require.NoError(t, idx.Insert(ctx, newEntry("r1", []float32{1, 0}, "report")))
	require.NoError(t, idx.Insert(ctx, newEntry("m2", []float32{0, 1}, "meeting")))

	t.Run("equality", func(t *testing.T) {
		hits, err := idx.Search(ctx, []float32{1, 0}, 5, domain.Filter{Equals: map[string]string{"category": "meeting"}})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "m1", hits[0].Chunk.ID)
		assert.Equal(t, "m2", hits[1].Chunk.ID)
	})

	t.Run("filter applies before top k", func(t *testing.T) {
		hits, err := idx.Search(ctx, []float32{1, 0}, 1, domain.Filter{Equals: map[string]string{"category": "report"}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "r1", hits[0].Chunk.ID)
	})

	t.Run("inclusion", func(t *testing.T) {
		hits, err := idx.Search(ctx, []float32{0, 1}, 5, domain.Filter{In: map[string][]string{"source": {"m2.txt", "r1.txt"}}})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "m2", hits[0].Chunk.ID)
	})

	t.Run("no match is empty", func(t *testing.T) {
		hits, err := idx.Search(ctx, []float32{1, 0}, 5, domain.Filter{Equals: map[string]string{"category": "memo"}})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := idx.Search(ctx, []float32{1, 0}, 5, domain.Filter{Equals: map[string]string{"owner": "bob"}})
		var valErr *domain.ValidationError
		require.ErrorAs(t, err, &valErr)
		assert.ErrorIs(t, err, domain.ErrUnknownFilterKey)
	})
}

func TestSearch_ExtensionKeysBecomeFilterable(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	e := newEntry("a", []float32{1, 0}, "x")
	e.Chunk.Metadata.Extra = map[string]string{"team": "infra"}
	require.NoError(t, idx.Insert(ctx, e))

	assert.Equal(t, []string{"category", "source", "team"}, idx.filterKeysLocked())

	hits, err := idx.Search(ctx, []float32{1, 0}, 1, domain.Filter{Equals: map[string]string{"team": "infra"}})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	require.NoError(t, idx.Insert(ctx, newEntry("b", []float32{0, 1}, "y")))
	require.NoError(t, idx.Delete(ctx, "a"))
	assert.Equal(t, []string{"category", "source"}, idx.filterKeysLocked())

	_, err = idx.Search(ctx, []float32{1, 0}, 1, domain.Filter{Equals: map[string]string{"team": "infra"}})
	assert.ErrorIs(t, err, domain.ErrUnknownFilterKey)
	assert.ErrorContains(t, err, "team (known: category, source)")
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	idx := newIndex(t, 3)
	require.NoError(t, idx.Insert(context.Background(), newEntry("a", []float32{1, 0, 0}, "x")))

	_, err := idx.Search(context.Background(), []float32{1, 0}, 1, domain.Filter{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSearch_NonPositiveK(t *testing.T) {
	idx := newIndex(t, 2)
	require.NoError(t, idx.Insert(context.Background(), newEntry("a", []float32{1, 0}, "x")))

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 0, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_ResultsAreCopies(t *testing.T) {
	idx := newIndex(t, 2)
	e := newEntry("a", []float32{1, 0}, "x")
	e.Chunk.Metadata.Extra = map[string]string{"team": "infra"}
	require.NoError(t, idx.Insert(context.Background(), e))

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 1, domain.Filter{})
	require.NoError(t, err)
	hits[0].Chunk.Metadata.Extra["team"] = "changed"

	again, err := idx.Search(context.Background(), []float32{1, 0}, 1, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "infra", again[0].Chunk.Metadata.Extra["team"])
}

func TestDelete(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Insert(ctx, newEntry("a", []float32{1, 0}, "x")))
	require.NoError(t, idx.Insert(ctx, newEntry("b", []float32{1, 0}, "x")))

	require.NoError(t, idx.Delete(ctx, "a"))
	assert.Equal(t, 1, idx.Count())
	assert.ErrorIs(t, idx.Delete(ctx, "a"), domain.ErrNotFound)

	// the freed ID can be reused
	require.NoError(t, idx.Insert(ctx, newEntry("a", []float32{1, 0}, "x")))
	hits, err := idx.Search(ctx, []float32{1, 0}, 2, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, "b", hits[0].Chunk.ID)
	assert.Equal(t, "a", hits[1].Chunk.ID)
}

func TestDeleteDocument(t *testing.T) {
	idx := newIndex(t, 2)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		e := newEntry(fmt.Sprintf("c%d", i), []float32{1, 0}, "x")
		e.Chunk.DocumentID = "doc-shared"
		require.NoError(t, idx.Insert(ctx, e))
	}
	require.NoError(t, idx.Insert(ctx, newEntry("other", []float32{1, 0}, "x")))

	n, err := idx.DeleteDocument(ctx, "doc-shared")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, idx.Count())
}

func TestClose(t *testing.T) {
	idx := newIndex(t, 2)
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), []float32{1, 0}, 1, domain.Filter{})
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
	assert.ErrorIs(t, idx.Insert(context.Background(), newEntry("a", []float32{1, 0}, "x")), domain.ErrIndexClosed)
}

func TestConcurrentInsertAndSearch(t *testing.T) {
	idx := newIndex(t, 3)
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, idx.Insert(ctx, newEntry(fmt.Sprintf("e%d", n), []float32{1, float32(n), 0}, "x")))
		}(i)
		go func() {
			defer wg.Done()
			_, err := idx.Search(ctx, []float32{1, 1, 0}, 5, domain.Filter{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, idx.Count())
}
