package mcp

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	chunks []domain.ScoredChunk
	err    error
	query  string
	req    domain.RetrievalRequest
}

func (m *mockRetriever) Retrieve(
	_ context.Context,
	query string,
	opts ...domain.RetrieveOption,
) ([]domain.ScoredChunk, error) {
	m.query = query
	m.req = domain.NewRetrievalRequest(query, 0, opts...)
	return m.chunks, m.err
}

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answer    *domain.Answer
	err       error
	questions []string
}

func (m *mockAskService) Ask(_ context.Context, question string, _ ...domain.RetrieveOption) (*domain.Answer, error) {
	m.questions = append(m.questions, question)
	return m.answer, m.err
}

// mockConversation is a mock implementation of driving.ConversationService.
type mockConversation struct {
	mockAskService
	history []domain.Turn
}

func (m *mockConversation) Ask(ctx context.Context, question string, opts ...domain.RetrieveOption) (*domain.Answer, error) {
	answer, err := m.mockAskService.Ask(ctx, question, opts...)
	if err == nil {
		m.history = append(m.history,
			domain.Turn{Role: domain.RoleUser, Content: question, Seq: len(m.history)},
			domain.Turn{Role: domain.RoleAssistant, Content: answer.Text, Seq: len(m.history) + 1},
		)
	}
	return answer, err
}

func (m *mockConversation) History() []domain.Turn { return m.history }
func (m *mockConversation) Clear()                 { m.history = nil }

func (m *mockConversation) State() domain.ConversationState {
	if len(m.history) == 0 {
		return domain.StateFresh
	}
	return domain.StateActive
}

// mockSessionRegistry is a mock implementation of driving.SessionRegistry.
type mockSessionRegistry struct {
	sessions map[string]*mockConversation
	answer   *domain.Answer
	err      error
	next     int
}

func newMockSessionRegistry(answer *domain.Answer) *mockSessionRegistry {
	return &mockSessionRegistry{sessions: map[string]*mockConversation{}, answer: answer}
}

func (m *mockSessionRegistry) Open() string {
	m.next++
	handle := "session-" + string(rune('0'+m.next))
	m.sessions[handle] = &mockConversation{mockAskService: mockAskService{answer: m.answer, err: m.err}}
	return handle
}

func (m *mockSessionRegistry) Get(handle string) (driving.ConversationService, error) {
	conv, ok := m.sessions[handle]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

func (m *mockSessionRegistry) Close(handle string) { delete(m.sessions, handle) }
func (m *mockSessionRegistry) Len() int            { return len(m.sessions) }

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) { return m.settings, m.err }
func (m *mockSettingsService) Save(*domain.AppSettings) error    { return m.err }
func (m *mockSettingsService) SetEmbeddingProvider(domain.AIProvider, string, string) error {
	return m.err
}
func (m *mockSettingsService) SetLLMProvider(domain.AIProvider, string, string) error { return m.err }
func (m *mockSettingsService) Validate() error                                        { return m.err }
func (m *mockSettingsService) GetDefaults() domain.AppSettings                        { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error                         { return m.err }
func (m *mockSettingsService) ValidateLLMConfig() error                               { return m.err }
