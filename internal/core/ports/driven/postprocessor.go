package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// PostProcessor turns a document into chunks or rewrites existing chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, then tagging).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A chunk-creating processor receives nil and returns new chunks.
	// A chunk-rewriting processor receives chunks and returns them modified.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
