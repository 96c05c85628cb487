package domain

import (
	"maps"
	"sort"
)

// Well-known metadata keys. Filters and Metadata.Get accept these plus any
// key present in Metadata.Extra.
const (
	MetaSource     = "source"
	MetaCategory   = "category"
	MetaDocumentID = "document_id"
	MetaChunkIndex = "chunk_index"
)

// Metadata describes where a document came from.
// Source and Category are always present; anything else lives in Extra.
type Metadata struct {
	// Source is the origin of the document, usually a file path.
	Source string `json:"source"`

	// Category groups documents, e.g. "meeting".
	Category string `json:"category"`

	// Extra holds extension keys.
	Extra map[string]string `json:"extra,omitempty"`
}

// Get returns the value stored under key and whether it is set.
func (m Metadata) Get(key string) (string, bool) {
	switch key {
	case MetaSource:
		return m.Source, true
	case MetaCategory:
		return m.Category, true
	}
	v, ok := m.Extra[key]
	return v, ok
}

// Keys returns every key carried by the metadata, sorted.
func (m Metadata) Keys() []string {
	keys := []string{MetaCategory, MetaSource}
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys[2:])
	return keys
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = maps.Clone(m.Extra)
	}
	return out
}

// With returns a copy with key set to value.
func (m Metadata) With(key, value string) Metadata {
	out := m.Clone()
	switch key {
	case MetaSource:
		out.Source = value
	case MetaCategory:
		out.Category = value
	default:
		if out.Extra == nil {
			out.Extra = make(map[string]string)
		}
		out.Extra[key] = value
	}
	return out
}

// Merge returns a copy with every non-empty override applied.
func (m Metadata) Merge(override Metadata) Metadata {
	out := m.Clone()
	if override.Source != "" {
		out.Source = override.Source
	}
	if override.Category != "" {
		out.Category = override.Category
	}
	for k, v := range override.Extra {
		out = out.With(k, v)
	}
	return out
}

// Document is a unit of source text submitted for indexing.
// Documents are immutable once ingested.
type Document struct {
	// ID uniquely identifies this document.
	ID string `json:"id"`

	// Text is the full document body.
	Text string `json:"text"`

	// Metadata carries source and category.
	Metadata Metadata `json:"metadata"`
}

// Chunk is a contiguous span of a document's text.
type Chunk struct {
	// ID uniquely identifies this chunk.
	ID string `json:"id"`

	// DocumentID references the parent document.
	DocumentID string `json:"document_id"`

	// Text is the chunk body, including any overlap prefix.
	Text string `json:"text"`

	// Start is the byte offset of Text within the document.
	Start int `json:"start"`

	// End is the byte offset just past Text within the document.
	End int `json:"end"`

	// Position is the chunk's sequence number within the document.
	Position int `json:"position"`

	// Metadata is inherited from the document plus chunk_index.
	Metadata Metadata `json:"metadata"`
}

// IndexEntry pairs a chunk with its embedding vector.
// Entries are never mutated after insertion.
type IndexEntry struct {
	// ID uniquely identifies the entry. Usually the chunk ID.
	ID string

	// Vector is the chunk embedding.
	Vector []float32

	// Chunk is the indexed span.
	Chunk Chunk
}

// ChangeType classifies a document change reported by a watcher.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// DocumentChange is a single watcher event. For ChangeDeleted only
// Document.ID and Document.Metadata are set. Err is set when a created or
// updated file could not be read; Document then carries only ID and Metadata.
type DocumentChange struct {
	Type     ChangeType
	Document Document
	Err      error
}
