package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// VectorIndex stores embedded chunks and answers exact nearest-neighbour
// queries. Implementations are safe for concurrent use: searches may run in
// parallel, inserts are serialised.
type VectorIndex interface {
	// Insert adds an entry. A vector of the wrong dimension is rejected with a
	// *domain.ValidationError and the index is unchanged.
	Insert(ctx context.Context, entry domain.IndexEntry) error

	// Delete removes a single entry.
	Delete(ctx context.Context, id string) error

	// DeleteDocument removes every entry of a document and returns how many
	// were removed.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// Search returns up to k entries passing filter, best first. Equal scores
	// keep insertion order. An empty index returns an empty result.
	Search(ctx context.Context, query []float32, k int, filter domain.Filter) ([]domain.ScoredChunk, error)

	// Count returns the number of entries.
	Count() int

	// Dimension returns the fixed vector size.
	Dimension() int

	// Metric returns the similarity metric.
	Metric() domain.Metric

	// Close releases resources.
	Close() error
}

// IndexStore locates a persisted vector index.
type IndexStore interface {
	// Exists reports whether an index has been persisted at the location.
	Exists(ctx context.Context) (bool, error)

	// Open loads the persisted index, or creates an empty one when absent.
	// Opening an existing index with a different dimension or metric is a
	// *domain.ConfigurationError.
	Open(ctx context.Context, dimension int, metric domain.Metric) (VectorIndex, error)

	// Remove deletes the persisted index.
	Remove(ctx context.Context) error

	// Location returns the opaque location identifier.
	Location() string
}
