// Package domain defines the core entities of the retrieval core.
//
// This package is the innermost layer of the hexagon. It has NO external
// dependencies and defines the fundamental types:
//
//   - Document: A source text with metadata
//   - Chunk: A retrievable span of a document
//   - IndexEntry: A chunk paired with its embedding vector
//   - ScoredChunk: A search hit with its similarity score
//   - Turn: One message of a conversation
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
