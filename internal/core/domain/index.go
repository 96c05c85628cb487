package domain

import (
	"errors"
	"fmt"
)

// ChunkFailure records a chunk that could not be indexed. Position is -1
// when the whole document failed before chunking.
type ChunkFailure struct {
	DocumentID string
	ChunkID    string
	Position   int
	Stage      Stage
	Err        error

	// Source is the document's origin, set when the document never loaded.
	Source string
}

func (f ChunkFailure) Error() string {
	name := f.DocumentID
	if f.Source != "" {
		name = f.Source
	}
	if f.Position < 0 {
		return fmt.Sprintf("document %s: %s: %v", name, f.Stage, f.Err)
	}
	return fmt.Sprintf("document %s chunk %d: %s: %v", name, f.Position, f.Stage, f.Err)
}

func (f ChunkFailure) Unwrap() error { return f.Err }

// BuildReport summarises an index build.
type BuildReport struct {
	// Location is where the index is persisted.
	Location string

	// Skipped is true when an existing index was loaded instead of built.
	Skipped bool

	// Documents is the number of documents processed.
	Documents int

	// Inserted is the number of chunks committed to the index.
	Inserted int

	// Failures lists every chunk that was not committed.
	Failures []ChunkFailure
}

// Merge folds other into r.
func (r *BuildReport) Merge(other BuildReport) {
	r.Documents += other.Documents
	r.Inserted += other.Inserted
	r.Failures = append(r.Failures, other.Failures...)
}

// Err joins every failure, or returns nil when all chunks were committed.
func (r *BuildReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
