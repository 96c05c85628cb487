package driven

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// DocumentSource supplies documents for indexing.
type DocumentSource interface {
	// Load returns every document currently available, in a stable order.
	// Documents that cannot be read are skipped and listed in failures with
	// StageLoad; err is reserved for failures that stop the whole load.
	Load(ctx context.Context) (docs []domain.Document, failures []domain.ChunkFailure, err error)
}

// DocumentWatcher is an optional DocumentSource capability that reports
// changes as they happen. The channel is closed when ctx is cancelled.
type DocumentWatcher interface {
	Watch(ctx context.Context) (<-chan domain.DocumentChange, error)
}

// Normaliser extracts indexable text from a file's raw bytes.
type Normaliser interface {
	// Extensions lists the lower-case file suffixes handled, with dots.
	Extensions() []string

	// Normalise converts raw, read from path, into plain text.
	Normalise(ctx context.Context, path string, raw []byte) (*NormaliseResult, error)
}

// NormaliseResult is the text extracted from one file.
type NormaliseResult struct {
	// Text is the plain body that gets chunked.
	Text string

	// Title is the document title when the format carries one.
	Title string

	// Format names the normaliser that produced Text, e.g. "markdown".
	Format string
}
