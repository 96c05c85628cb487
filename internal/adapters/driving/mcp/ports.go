package mcp

import (
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever answers retrieve calls.
	Retriever driving.Retriever

	// Ask answers stateless questions. Optional.
	Ask driving.AskService

	// Sessions holds conversations for ask calls that pass a session. Optional.
	Sessions driving.SessionRegistry

	// Settings exposes the current configuration. Optional.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
