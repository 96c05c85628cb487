// Package cache memoises embeddings of repeated texts in a bounded LRU.
package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Service is an EmbeddingService that answers repeated texts from memory.
type Service struct {
	inner driven.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// New wraps inner with an LRU holding up to size vectors.
func New(inner driven.EmbeddingService, size int) (*Service, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Service{inner: inner, cache: c}, nil
}

// Embed returns the cached vector for text or embeds and caches it.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := s.cache.Get(text); ok {
		return clone(vec), nil
	}
	vec, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(text, clone(vec))
	return vec, nil
}

// EmbedBatch embeds only the texts not already cached, in one call.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if vec, ok := s.cache.Get(t); ok {
			out[i] = clone(vec)
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := s.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(vecs), len(missing))
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		s.cache.Add(missing[j], clone(vec))
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (s *Service) Len() int { return s.cache.Len() }

// Dimensions returns the wrapped service's vector size.
func (s *Service) Dimensions() int { return s.inner.Dimensions() }

// ModelName returns the wrapped service's model.
func (s *Service) ModelName() string { return s.inner.ModelName() }

// Ping checks the wrapped service.
func (s *Service) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close purges the cache and closes the wrapped service.
func (s *Service) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}

func clone(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
