package domain

import (
	"slices"
	"strings"
)

// Metric selects how the vector index scores similarity.
type Metric string

// Supported metrics.
const (
	// MetricCosine scores by cosine similarity. Higher is closer.
	MetricCosine Metric = "cosine"

	// MetricEuclidean scores by negative L2 distance. Higher is closer.
	MetricEuclidean Metric = "euclidean"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	return m == MetricCosine || m == MetricEuclidean
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// Filter restricts search candidates by metadata.
// An entry passes when every equality and every inclusion predicate holds.
type Filter struct {
	// Equals requires metadata[key] == value.
	Equals map[string]string `json:"equals,omitempty"`

	// In requires metadata[key] to be one of the listed values.
	In map[string][]string `json:"in,omitempty"`
}

// IsEmpty returns true if the filter has no predicates.
func (f Filter) IsEmpty() bool {
	return len(f.Equals) == 0 && len(f.In) == 0
}

// Keys returns every metadata key the filter references, sorted.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f.Equals)+len(f.In))
	for k := range f.Equals {
		keys = append(keys, k)
	}
	for k := range f.In {
		if _, dup := f.Equals[k]; !dup {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Matches reports whether m satisfies every predicate.
func (f Filter) Matches(m Metadata) bool {
	for k, want := range f.Equals {
		got, ok := m.Get(k)
		if !ok || got != want {
			return false
		}
	}
	for k, allowed := range f.In {
		got, ok := m.Get(k)
		if !ok || !slices.Contains(allowed, got) {
			return false
		}
	}
	return true
}

// String renders the filter as sorted key=value terms.
func (f Filter) String() string {
	parts := make([]string, 0, len(f.Equals)+len(f.In))
	for _, k := range f.Keys() {
		if v, ok := f.Equals[k]; ok {
			parts = append(parts, k+"="+v)
		}
		if vs, ok := f.In[k]; ok {
			parts = append(parts, k+" in ["+strings.Join(vs, ",")+"]")
		}
	}
	return strings.Join(parts, " ")
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	// Chunk is the matched span.
	Chunk Chunk `json:"chunk"`

	// Score is the similarity under the index metric. Higher is closer.
	Score float64 `json:"score"`
}

// RetrievalRequest describes a single retrieval.
type RetrievalRequest struct {
	// Query is the natural language query text.
	Query string

	// K is the maximum number of results.
	K int

	// Filter restricts candidates. Zero value matches everything.
	Filter Filter

	// MinScore drops hits scoring below it when non-zero.
	MinScore float64
}

// RetrieveOption customises a RetrievalRequest.
type RetrieveOption func(*RetrievalRequest)

// WithK sets the number of results.
func WithK(k int) RetrieveOption {
	return func(r *RetrievalRequest) { r.K = k }
}

// WithFilter restricts candidates by metadata.
func WithFilter(f Filter) RetrieveOption {
	return func(r *RetrievalRequest) { r.Filter = f }
}

// WithMinScore drops hits scoring below min.
func WithMinScore(min float64) RetrieveOption {
	return func(r *RetrievalRequest) { r.MinScore = min }
}

// NewRetrievalRequest applies opts over a request for query with k results.
func NewRetrievalRequest(query string, k int, opts ...RetrieveOption) RetrievalRequest {
	r := RetrievalRequest{Query: query, K: k}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}
