// Package sqlite persists the vector index in a single SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The index location is a directory holding index.db with
// two tables:
//
//   - index_meta: the fixed dimension and metric, written once
//   - entries: one row per indexed chunk, vectors stored as little-endian
//     float32 blobs, ordered by an autoincrement sequence
//
// Opening an index replays the entries in sequence order into an in-memory
// exact index, so search results after a reload match those before it.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Thread Safety
//
// Inserts and deletes are serialised and reach memory only after their
// transaction commits. Searches never touch the database.
package sqlite
