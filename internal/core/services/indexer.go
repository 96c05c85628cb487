package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// tracerName scopes the spans emitted by this package.
const tracerName = "github.com/custodia-labs/ragkit/internal/core/services"

// IndexService chunks, embeds and inserts documents.
//
// Documents are prepared (chunked and embedded) by a bounded worker pool and
// inserted in input order, so an index built twice from the same documents
// ranks ties identically.
type IndexService struct {
	store    driven.IndexStore
	embedder driven.EmbeddingService
	pipeline driven.PostProcessorPipeline
	settings domain.IndexSettings
	tracer   trace.Tracer
	log      logger.Scoped
}

// NewIndexService creates an index service. A zero settings.Dimensions is
// taken from the embedding service.
func NewIndexService(
	store driven.IndexStore,
	embedder driven.EmbeddingService,
	pipeline driven.PostProcessorPipeline,
	settings domain.IndexSettings,
) *IndexService {
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	if settings.Metric == "" {
		settings.Metric = domain.MetricCosine
	}
	return &IndexService{
		store:    store,
		embedder: embedder,
		pipeline: pipeline,
		settings: settings,
		tracer:   otel.Tracer(tracerName),
		log:      logger.For("indexer"),
	}
}

// Dimension returns the vector size used for new indexes.
func (s *IndexService) Dimension() int {
	if s.settings.Dimensions > 0 {
		return s.settings.Dimensions
	}
	return s.embedder.Dimensions()
}

// Open opens the persisted index without building anything.
func (s *IndexService) Open(ctx context.Context) (driven.VectorIndex, error) {
	return s.store.Open(ctx, s.Dimension(), s.settings.Metric)
}

// BuildIfAbsent opens the persisted index when one exists. Otherwise it loads
// every document from source and builds a new one. An existing index is
// returned without consulting source or the embedding service.
func (s *IndexService) BuildIfAbsent(
	ctx context.Context,
	source driven.DocumentSource,
) (driven.VectorIndex, *domain.BuildReport, error) {
	exists, err := s.store.Exists(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("check index: %w", err)
	}
	if !exists {
		return s.build(ctx, source)
	}

	idx, err := s.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	s.log.Info("using existing index at %s (%d entries)", s.store.Location(), idx.Count())
	return idx, &domain.BuildReport{Location: s.store.Location(), Skipped: true}, nil
}

// Rebuild removes the persisted index and builds a fresh one.
func (s *IndexService) Rebuild(
	ctx context.Context,
	source driven.DocumentSource,
) (driven.VectorIndex, *domain.BuildReport, error) {
	if err := s.store.Remove(ctx); err != nil {
		return nil, nil, fmt.Errorf("remove index: %w", err)
	}
	return s.build(ctx, source)
}

// build creates the index and ingests source. A build that is cancelled or
// fails outright is removed so the next BuildIfAbsent starts over instead of
// treating a partial index as complete. A source with no readable documents
// fails with ErrNoDocuments before anything is persisted.
func (s *IndexService) build(
	ctx context.Context,
	source driven.DocumentSource,
) (driven.VectorIndex, *domain.BuildReport, error) {
	done := logger.Timed("index build")
	defer done()

	docs, failures, err := source.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		report := &domain.BuildReport{Location: s.store.Location(), Failures: failures}
		if len(failures) > 0 {
			return nil, report, fmt.Errorf("%w: %d files could not be read", domain.ErrNoDocuments, len(failures))
		}
		return nil, report, domain.ErrNoDocuments
	}

	idx, err := s.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create index: %w", err)
	}

	report, err := s.Ingest(ctx, idx, docs)
	if err != nil {
		_ = idx.Close()
		if rmErr := s.store.Remove(context.WithoutCancel(ctx)); rmErr != nil {
			s.log.Warn("remove incomplete index: %v", rmErr)
		}
		return nil, report, err
	}
	report.Location = s.store.Location()
	report.Failures = append(failures, report.Failures...)

	s.log.Info("indexed %d chunks from %d documents into %s", report.Inserted, report.Documents, report.Location)
	if n := len(report.Failures); n > 0 {
		s.log.Warn("%d chunks could not be indexed", n)
	}
	return idx, report, nil
}

// prepared is a document ready for insertion.
type prepared struct {
	chunks   []domain.Chunk
	vectors  [][]float32
	failures []domain.ChunkFailure
}

// Ingest chunks, embeds and inserts docs. Per-chunk failures are recorded in
// the report and do not stop the build or roll back committed chunks. Only
// cancellation, or an index that can no longer accept inserts, returns an
// error.
func (s *IndexService) Ingest(
	ctx context.Context,
	idx driven.VectorIndex,
	docs []domain.Document,
) (report *domain.BuildReport, err error) {
	ctx, span := s.tracer.Start(ctx, "ragkit.index.ingest", trace.WithAttributes(
		attribute.Int("documents", len(docs)),
		attribute.Int("workers", s.settings.Workers),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("inserted", report.Inserted),
				attribute.Int("failures", len(report.Failures)),
			)
		}
		span.End()
	}()

	report = &domain.BuildReport{Location: s.store.Location()}

	// Prepare in windows so memory stays bounded on large corpora.
	window := s.settings.Workers * 4
	for start := 0; start < len(docs); start += window {
		end := min(start+window, len(docs))
		batch := docs[start:end]

		results, err := s.prepareAll(ctx, batch)
		if err != nil {
			return report, err
		}
		for i, doc := range batch {
			report.Documents++
			if err := s.insert(ctx, idx, doc, results[i], report); err != nil {
				return report, err
			}
		}
	}
	return report, nil
}

func (s *IndexService) prepareAll(ctx context.Context, docs []domain.Document) ([]prepared, error) {
	results := make([]prepared, len(docs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.settings.Workers)
	for i := range docs {
		group.Go(func() error {
			res, err := s.prepare(groupCtx, &docs[i])
			results[i] = res
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

// prepare chunks and embeds one document. The returned error is non-nil only
// on cancellation; service failures are recorded in the result.
func (s *IndexService) prepare(ctx context.Context, doc *domain.Document) (prepared, error) {
	var res prepared

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.failures = append(res.failures, domain.ChunkFailure{
			DocumentID: doc.ID, Position: -1, Stage: domain.StageChunk, Err: err,
		})
		return res, nil
	}
	if len(chunks) == 0 {
		return res, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(chunks) {
		err = domain.NewServiceError(domain.StageEmbed, domain.ServiceMalformed,
			fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks)))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		for _, c := range chunks {
			res.failures = append(res.failures, domain.ChunkFailure{
				DocumentID: doc.ID, ChunkID: c.ID, Position: c.Position, Stage: domain.StageEmbed, Err: err,
			})
		}
		return res, nil
	}

	res.chunks = chunks
	res.vectors = vectors
	return res, nil
}

func (s *IndexService) insert(
	ctx context.Context,
	idx driven.VectorIndex,
	doc domain.Document,
	res prepared,
	report *domain.BuildReport,
) error {
	report.Failures = append(report.Failures, res.failures...)
	for i, c := range res.chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := idx.Insert(ctx, domain.IndexEntry{ID: c.ID, Vector: res.vectors[i], Chunk: c})
		switch {
		case err == nil:
			report.Inserted++
		case errors.Is(err, domain.ErrIndexClosed):
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			report.Failures = append(report.Failures, domain.ChunkFailure{
				DocumentID: doc.ID, ChunkID: c.ID, Position: c.Position, Stage: domain.StageInsert, Err: err,
			})
		}
	}
	s.log.Debug("document %s: %d chunks", doc.ID, len(res.chunks))
	return nil
}

// Reindex removes every entry of doc and ingests it again.
func (s *IndexService) Reindex(
	ctx context.Context,
	idx driven.VectorIndex,
	doc domain.Document,
) (*domain.BuildReport, error) {
	removed, err := idx.DeleteDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("remove document %s: %w", doc.ID, err)
	}
	s.log.Debug("reindex %s: removed %d entries", doc.Metadata.Source, removed)
	return s.Ingest(ctx, idx, []domain.Document{doc})
}

// Apply reindexes created or updated documents and removes deleted ones. A
// change whose file could not be read removes the document's stale entries
// and reports the read failure.
func (s *IndexService) Apply(
	ctx context.Context,
	idx driven.VectorIndex,
	change domain.DocumentChange,
) (*domain.BuildReport, error) {
	if change.Err != nil && change.Type != domain.ChangeDeleted {
		if _, err := idx.DeleteDocument(ctx, change.Document.ID); err != nil {
			return nil, fmt.Errorf("remove document %s: %w", change.Document.ID, err)
		}
		return &domain.BuildReport{
			Location: s.store.Location(),
			Failures: []domain.ChunkFailure{{
				DocumentID: change.Document.ID,
				Position:   -1,
				Stage:      domain.StageLoad,
				Err:        change.Err,
				Source:     change.Document.Metadata.Source,
			}},
		}, nil
	}

	switch change.Type {
	case domain.ChangeDeleted:
		if _, err := idx.DeleteDocument(ctx, change.Document.ID); err != nil {
			return nil, fmt.Errorf("remove document %s: %w", change.Document.ID, err)
		}
		return &domain.BuildReport{Location: s.store.Location()}, nil
	case domain.ChangeCreated, domain.ChangeUpdated:
		return s.Reindex(ctx, idx, change.Document)
	default:
		return nil, fmt.Errorf("%w: unknown change type %q", domain.ErrInvalidInput, change.Type)
	}
}

// Watch applies every change from watcher until ctx is cancelled or the
// watcher stops. A failed change is logged and does not stop the watch.
func (s *IndexService) Watch(
	ctx context.Context,
	idx driven.VectorIndex,
	watcher driven.DocumentWatcher,
	onChange func(domain.DocumentChange, *domain.BuildReport, error),
) error {
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	for change := range changes {
		report, err := s.Apply(ctx, idx, change)
		if err != nil && ctx.Err() == nil {
			s.log.Warn("%s %s: %v", change.Type, change.Document.Metadata.Source, err)
		}
		if onChange != nil {
			onChange(change, report, err)
		}
	}
	return ctx.Err()
}
