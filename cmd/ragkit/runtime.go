package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragkit/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
	"github.com/custodia-labs/ragkit/internal/core/services"
	"github.com/custodia-labs/ragkit/internal/logger"
	"github.com/custodia-labs/ragkit/internal/normalisers"
	"github.com/custodia-labs/ragkit/internal/postprocessors"
)

// Ensure runtime implements the interface.
var _ cli.Runtime = (*runtime)(nil)

// runtime builds core services on first use and owns everything it opens.
type runtime struct {
	dir     string
	store   driven.ConfigStore
	prompts driven.PromptStore

	// initAI connects the providers named in settings.
	initAI func(context.Context, *domain.AppSettings) (*ai.InitResult, error)

	mu       sync.Mutex
	settings *domain.AppSettings
	ai       *ai.InitResult
	engine   *cli.Engine
	closers  []io.Closer
	log      logger.Scoped
}

func newRuntime(dir string, store driven.ConfigStore, prompts driven.PromptStore) *runtime {
	return &runtime{
		dir:     dir,
		store:   store,
		prompts: prompts,
		initAI:  ai.Init,
		log:     logger.For("runtime"),
	}
}

// load reads settings and connects providers once. Callers hold mu.
func (r *runtime) load(ctx context.Context) error {
	if r.ai != nil {
		return nil
	}

	settings, err := services.LoadSettings(r.store)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.Index.Location == "" {
		settings.Index.Location = filepath.Join(r.dir, "index")
	}

	result, err := r.initAI(ctx, settings)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		r.log.Warn("%s", w)
	}

	r.settings = settings
	r.ai = result
	return nil
}

func (r *runtime) indexService() (*services.IndexService, error) {
	store, err := sqlite.NewIndexStore(r.settings.Index.Location)
	if err != nil {
		return nil, err
	}
	pipeline, err := postprocessors.NewDefaultPipeline(r.settings.Chunk, domain.Metadata{})
	if err != nil {
		return nil, err
	}
	return services.NewIndexService(store, r.ai.EmbeddingService, pipeline, r.settings.Index), nil
}

func (r *runtime) source(paths []string) *filesystem.Source {
	settings := r.settings.Source
	if len(paths) > 0 {
		settings.Paths = paths
	}
	src := filesystem.New(settings, filesystem.WithNormaliser(normalisers.Default()))
	r.closers = append(r.closers, src)
	return src
}

// Indexer returns the index service and a source over paths, or over the
// configured paths when paths is empty.
func (r *runtime) Indexer(ctx context.Context, paths []string) (driving.IndexService, cli.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.load(ctx); err != nil {
		return nil, nil, err
	}
	indexer, err := r.indexService()
	if err != nil {
		return nil, nil, err
	}
	return indexer, r.source(paths), nil
}

// Engine builds the index if absent and wires the query services over it.
// Generation is left nil when no LLM is reachable.
func (r *runtime) Engine(ctx context.Context) (*cli.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		return r.engine, nil
	}
	if err := r.load(ctx); err != nil {
		return nil, err
	}

	indexer, err := r.indexService()
	if err != nil {
		return nil, err
	}
	empty := false
	idx, report, err := indexer.BuildIfAbsent(ctx, r.source(nil))
	if errors.Is(err, domain.ErrNoDocuments) {
		// Nothing is persisted, so a later index command still builds.
		r.log.Warn("no index at %s and no documents under %v", r.settings.Index.Location, r.settings.Source.Paths)
		empty = true
		idx, err = memory.NewVectorIndex(indexer.Dimension(), r.settings.Index.Metric)
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	r.closers = append(r.closers, idx)

	retriever := services.NewRetriever(idx, r.ai.EmbeddingService, r.settings.Retrieval)
	engine := &cli.Engine{Report: report, Empty: empty, Retriever: retriever}

	if llm := r.ai.LLMService; llm != nil {
		conv := r.settings.Conversation
		pipeline := services.NewPipeline(
			retriever,
			services.NewAssembler(r.prompts),
			services.NewChatGenerator(llm, conv.GenerateTimeout, driven.ChatOptions{}),
		)

		var reformulator services.Reformulator = services.HeuristicReformulator{}
		if conv.Reformulator == domain.ReformulatorLLM {
			reformulator = services.NewLLMReformulator(llm, r.prompts, conv.GenerateTimeout)
		}
		factory := func() *services.Conversation {
			return services.NewConversation(pipeline, reformulator, conv)
		}

		sessions, err := services.NewSessionRegistry(conv.MaxSessions, factory)
		if err != nil {
			return nil, err
		}
		engine.Ask = pipeline
		engine.NewConversation = func() driving.ConversationService { return factory() }
		engine.Sessions = sessions
	}

	r.engine = engine
	return engine, nil
}

// Close releases the index, sources and provider clients.
func (r *runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	r.closers = nil
	if r.ai != nil {
		r.ai.Close()
		r.ai = nil
	}
	r.engine = nil
	return errors.Join(errs...)
}
