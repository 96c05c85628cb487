package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Retriever embeds queries and searches the vector index.
type Retriever struct {
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	settings domain.RetrievalSettings
	tracer   trace.Tracer
	log      logger.Scoped
}

// NewRetriever creates a retriever over index. settings.K is the default
// number of results when no WithK option is given.
func NewRetriever(
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	settings domain.RetrievalSettings,
) *Retriever {
	if settings.K == 0 {
		settings.K = domain.DefaultAppSettings().Retrieval.K
	}
	return &Retriever{
		index:    index,
		embedder: embedder,
		settings: settings,
		tracer:   otel.Tracer(tracerName),
		log:      logger.For("retriever"),
	}
}

// Retrieve returns up to k chunks ranked by similarity to query.
// A blank query or a non-positive k returns an empty result.
func (r *Retriever) Retrieve(
	ctx context.Context,
	query string,
	opts ...domain.RetrieveOption,
) ([]domain.ScoredChunk, error) {
	opts = append([]domain.RetrieveOption{domain.WithMinScore(r.settings.MinScore)}, opts...)
	req := domain.NewRetrievalRequest(strings.TrimSpace(query), r.settings.K, opts...)
	if req.Query == "" || req.K <= 0 {
		r.log.Debug("empty query or k=%d, nothing to retrieve", req.K)
		return []domain.ScoredChunk{}, nil
	}

	ctx, span := r.tracer.Start(ctx, "ragkit.retrieve", trace.WithAttributes(
		attribute.Int("k", req.K),
		attribute.String("filter", req.Filter.String()),
	))
	defer span.End()

	vector, err := r.embedQuery(ctx, req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	hits, err := r.search(ctx, vector, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("matches", len(hits)))
	r.log.Debug("query %q: %d hits", req.Query, len(hits))
	return hits, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	ctx, span := r.tracer.Start(ctx, "ragkit.retrieve.embed_query")
	defer span.End()

	embedCtx := ctx
	if r.settings.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, r.settings.EmbedTimeout)
		defer cancel()
	}

	vector, err := r.embedder.Embed(embedCtx, query)
	if err == nil {
		return vector, nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var svcErr *domain.ServiceError
	switch {
	case errors.As(err, &svcErr):
		return nil, fmt.Errorf("embed query: %w", err)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("embed query: %w",
			domain.NewServiceError(domain.StageEmbed, domain.ServiceUnavailable, err))
	}
}

func (r *Retriever) search(
	ctx context.Context,
	vector []float32,
	req domain.RetrievalRequest,
) ([]domain.ScoredChunk, error) {
	ctx, span := r.tracer.Start(ctx, "ragkit.retrieve.vector_search")
	defer span.End()

	hits, err := r.index.Search(ctx, vector, req.K, req.Filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if req.MinScore == 0 {
		return hits, nil
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= req.MinScore {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// FormatContext joins chunk texts with sep in ranking order.
func FormatContext(chunks []domain.ScoredChunk, sep string) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}
	return strings.Join(texts, sep)
}
