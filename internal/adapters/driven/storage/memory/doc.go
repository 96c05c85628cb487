// Package memory provides in-memory implementations of driven ports: the
// exact vector index that every persisted index is loaded into, and a
// ConfigStore for tests.
package memory
