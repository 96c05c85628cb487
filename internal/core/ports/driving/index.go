package driving

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// IndexService builds and maintains the vector index.
type IndexService interface {
	// BuildIfAbsent opens the persisted index when one exists and otherwise
	// builds it from source. The report has Skipped set when nothing was built.
	BuildIfAbsent(ctx context.Context, source driven.DocumentSource) (driven.VectorIndex, *domain.BuildReport, error)

	// Rebuild discards any persisted index and builds a fresh one from source.
	Rebuild(ctx context.Context, source driven.DocumentSource) (driven.VectorIndex, *domain.BuildReport, error)

	// Ingest chunks, embeds and inserts docs into idx.
	Ingest(ctx context.Context, idx driven.VectorIndex, docs []domain.Document) (*domain.BuildReport, error)

	// Reindex replaces every entry of doc in idx.
	Reindex(ctx context.Context, idx driven.VectorIndex, doc domain.Document) (*domain.BuildReport, error)

	// Apply brings idx in line with a single document change.
	Apply(ctx context.Context, idx driven.VectorIndex, change domain.DocumentChange) (*domain.BuildReport, error)

	// Watch applies changes reported by watcher until ctx is cancelled.
	// Each applied change is passed to onChange when it is non-nil.
	Watch(ctx context.Context, idx driven.VectorIndex, watcher driven.DocumentWatcher,
		onChange func(domain.DocumentChange, *domain.BuildReport, error)) error
}
