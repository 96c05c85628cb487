package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// MockRetriever implements driving.Retriever for testing.
type MockRetriever struct {
	results []domain.ScoredChunk
	err     error
	query   string
	req     domain.RetrievalRequest
}

func (m *MockRetriever) Retrieve(
	_ context.Context, query string, opts ...domain.RetrieveOption,
) ([]domain.ScoredChunk, error) {
	m.query = query
	m.req = domain.NewRetrievalRequest(query, 0, opts...)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// MockAskService implements driving.AskService for testing.
type MockAskService struct {
	answer   *domain.Answer
	err      error
	question string
	req      domain.RetrievalRequest
}

func (m *MockAskService) Ask(
	_ context.Context, question string, opts ...domain.RetrieveOption,
) (*domain.Answer, error) {
	m.question = question
	m.req = domain.NewRetrievalRequest(question, 0, opts...)
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

// MockConversation implements driving.ConversationService for testing.
type MockConversation struct {
	mu      sync.Mutex
	answer  *domain.Answer
	failOn  string
	turns   []domain.Turn
	cleared int
}

func (m *MockConversation) Ask(
	_ context.Context, question string, _ ...domain.RetrieveOption,
) (*domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if question == m.failOn {
		return nil, domain.NewServiceError(domain.StageGenerate, domain.ServiceUnavailable, errors.New("connection refused"))
	}
	m.turns = append(m.turns,
		domain.Turn{Role: domain.RoleUser, Content: question},
		domain.Turn{Role: domain.RoleAssistant, Content: m.answer.Text},
	)
	return m.answer, nil
}

func (m *MockConversation) History() []domain.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Turn(nil), m.turns...)
}

func (m *MockConversation) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
	m.cleared++
}

func (m *MockConversation) State() domain.ConversationState {
	if len(m.History()) == 0 {
		return domain.StateFresh
	}
	return domain.StateActive
}

// MockSource implements Source for testing.
type MockSource struct {
	docs    []domain.Document
	changes []domain.DocumentChange
}

func (m *MockSource) Load(context.Context) ([]domain.Document, []domain.ChunkFailure, error) {
	return m.docs, nil, nil
}

func (m *MockSource) Watch(context.Context) (<-chan domain.DocumentChange, error) {
	ch := make(chan domain.DocumentChange, len(m.changes))
	for _, c := range m.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

// MockIndexService implements driving.IndexService for testing.
type MockIndexService struct {
	report   *domain.BuildReport
	err      error
	rebuilt  bool
	watched  bool
	applyErr error
}

func (m *MockIndexService) open() (driven.VectorIndex, error) {
	idx, err := memory.NewVectorIndex(3, domain.MetricCosine)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (m *MockIndexService) BuildIfAbsent(
	_ context.Context, _ driven.DocumentSource,
) (driven.VectorIndex, *domain.BuildReport, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	idx, err := m.open()
	return idx, m.report, err
}

func (m *MockIndexService) Rebuild(
	ctx context.Context, source driven.DocumentSource,
) (driven.VectorIndex, *domain.BuildReport, error) {
	m.rebuilt = true
	return m.BuildIfAbsent(ctx, source)
}

func (m *MockIndexService) Ingest(
	context.Context, driven.VectorIndex, []domain.Document,
) (*domain.BuildReport, error) {
	return &domain.BuildReport{}, nil
}

func (m *MockIndexService) Reindex(
	context.Context, driven.VectorIndex, domain.Document,
) (*domain.BuildReport, error) {
	return &domain.BuildReport{Documents: 1, Inserted: 2}, nil
}

func (m *MockIndexService) Apply(
	ctx context.Context, idx driven.VectorIndex, change domain.DocumentChange,
) (*domain.BuildReport, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	if change.Err != nil {
		return &domain.BuildReport{Failures: []domain.ChunkFailure{{
			DocumentID: change.Document.ID, Position: -1, Stage: domain.StageLoad,
			Err: change.Err, Source: change.Document.Metadata.Source,
		}}}, nil
	}
	if change.Type == domain.ChangeDeleted {
		return nil, nil
	}
	return m.Reindex(ctx, idx, change.Document)
}

func (m *MockIndexService) Watch(
	ctx context.Context,
	idx driven.VectorIndex,
	watcher driven.DocumentWatcher,
	onChange func(domain.DocumentChange, *domain.BuildReport, error),
) error {
	m.watched = true
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	for change := range changes {
		report, err := m.Apply(ctx, idx, change)
		onChange(change, report, err)
	}
	return nil
}

// MockRuntime implements Runtime for testing.
type MockRuntime struct {
	engine    *Engine
	engineErr error
	indexer   *MockIndexService
	source    *MockSource
	paths     []string
	closed    bool
}

func (m *MockRuntime) Indexer(_ context.Context, paths []string) (driving.IndexService, Source, error) {
	m.paths = paths
	return m.indexer, m.source, nil
}

func (m *MockRuntime) Engine(context.Context) (*Engine, error) {
	if m.engineErr != nil {
		return nil, m.engineErr
	}
	return m.engine, nil
}

func (m *MockRuntime) Close() error {
	m.closed = true
	return nil
}

// MockSettingsService implements driving.SettingsService for testing.
type MockSettingsService struct {
	settings    *domain.AppSettings
	getErr      error
	validateErr error
	pingErr     error
	embedding   []string
	llm         []string
	saved       *domain.AppSettings
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := *m.settings
	return &s, nil
}

func (m *MockSettingsService) Save(s *domain.AppSettings) error {
	m.saved = s
	*m.settings = *s
	return nil
}

func (m *MockSettingsService) SetEmbeddingProvider(p domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(p), model, apiKey}
	return nil
}

func (m *MockSettingsService) SetLLMProvider(p domain.AIProvider, model, apiKey string) error {
	m.llm = []string{string(p), model, apiKey}
	return nil
}

func (m *MockSettingsService) Validate() error { return m.validateErr }

func (m *MockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *MockSettingsService) ValidateEmbeddingConfig() error { return m.pingErr }

func (m *MockSettingsService) ValidateLLMConfig() error { return m.pingErr }

var (
	_ driving.Retriever           = (*MockRetriever)(nil)
	_ driving.AskService          = (*MockAskService)(nil)
	_ driving.ConversationService = (*MockConversation)(nil)
	_ driving.IndexService        = (*MockIndexService)(nil)
	_ driving.SettingsService     = (*MockSettingsService)(nil)
	_ Runtime                     = (*MockRuntime)(nil)
	_ Source                      = (*MockSource)(nil)
)
