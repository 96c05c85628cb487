// Package tagger overrides chunk metadata after chunking, e.g. to force a
// category onto every chunk of an ingestion run.
package tagger

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// Processor applies a fixed metadata override to every chunk.
type Processor struct {
	override domain.Metadata
}

// New creates a tagger applying override. Empty fields are left untouched.
func New(override domain.Metadata) *Processor {
	return &Processor{override: override.Clone()}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "tagger"
}

// Process returns chunks with the override merged into their metadata.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.Metadata = c.Metadata.Merge(p.override)
		out[i] = c
	}
	return out, nil
}
