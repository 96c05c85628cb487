// Package tui provides an interactive terminal chat over the indexed corpus.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Conversation answers questions and keeps the chat history.
	Conversation driving.ConversationService

	// Settings is optional. When set, the header shows the active models.
	Settings driving.SettingsService
}

// NewPorts creates a Ports aggregate.
func NewPorts(conversation driving.ConversationService, settings driving.SettingsService) *Ports {
	return &Ports{
		Conversation: conversation,
		Settings:     settings,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Conversation == nil {
		return ErrMissingConversation
	}
	return nil
}
