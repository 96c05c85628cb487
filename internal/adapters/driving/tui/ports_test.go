package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// MockConversation implements driving.ConversationService for testing.
type MockConversation struct {
	AskFunc func(ctx context.Context, question string) (*domain.Answer, error)
	turns   []domain.Turn
}

func (m *MockConversation) Ask(
	ctx context.Context, question string, _ ...domain.RetrieveOption,
) (*domain.Answer, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, question)
	}
	m.turns = append(m.turns,
		domain.Turn{Role: domain.RoleUser, Content: question},
		domain.Turn{Role: domain.RoleAssistant, Content: "answer"},
	)
	return &domain.Answer{Text: "answer", Query: question}, nil
}

func (m *MockConversation) History() []domain.Turn {
	return append([]domain.Turn(nil), m.turns...)
}

func (m *MockConversation) Clear() {
	m.turns = nil
}

func (m *MockConversation) State() domain.ConversationState {
	if len(m.turns) == 0 {
		return domain.StateFresh
	}
	return domain.StateActive
}

// MockSettingsService implements driving.SettingsService for testing.
type MockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.settings, nil
}

func (m *MockSettingsService) Save(*domain.AppSettings) error { return nil }

func (m *MockSettingsService) SetEmbeddingProvider(domain.AIProvider, string, string) error {
	return nil
}

func (m *MockSettingsService) SetLLMProvider(domain.AIProvider, string, string) error { return nil }

func (m *MockSettingsService) Validate() error { return nil }

func (m *MockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *MockSettingsService) ValidateEmbeddingConfig() error { return nil }

func (m *MockSettingsService) ValidateLLMConfig() error { return nil }

var (
	_ driving.ConversationService = (*MockConversation)(nil)
	_ driving.SettingsService     = (*MockSettingsService)(nil)
)

func TestNewPorts(t *testing.T) {
	conv := &MockConversation{}
	settings := &MockSettingsService{}

	ports := NewPorts(conv, settings)

	assert.Equal(t, conv, ports.Conversation)
	assert.Equal(t, settings, ports.Settings)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ports   *Ports
		wantErr error
	}{
		{
			name:  "conversation only",
			ports: &Ports{Conversation: &MockConversation{}},
		},
		{
			name:  "with settings",
			ports: &Ports{Conversation: &MockConversation{}, Settings: &MockSettingsService{}},
		},
		{
			name:    "missing conversation",
			ports:   &Ports{Settings: &MockSettingsService{}},
			wantErr: ErrMissingConversation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			assert.NoError(t, err)
		})
	}
}
