package driving

import (
	"context"

	"github.com/custodia-labs/ragkit/internal/core/domain"
)

// Retriever finds the chunks most relevant to a query.
type Retriever interface {
	// Retrieve embeds query and returns ranked chunks with scores.
	// It never modifies the index.
	Retrieve(ctx context.Context, query string, opts ...domain.RetrieveOption) ([]domain.ScoredChunk, error)
}

// AskService answers a single question from retrieved context.
type AskService interface {
	// Ask retrieves context for question and generates an answer.
	Ask(ctx context.Context, question string, opts ...domain.RetrieveOption) (*domain.Answer, error)
}

// ConversationService answers questions while keeping a per-session history.
type ConversationService interface {
	AskService

	// History returns a copy of the turns recorded so far.
	History() []domain.Turn

	// Clear empties the history.
	Clear()

	// State reports whether any turn has been recorded.
	State() domain.ConversationState
}

// SessionRegistry hands out conversation sessions by handle.
type SessionRegistry interface {
	// Open creates a session and returns its handle.
	Open() string

	// Get returns the session for handle.
	Get(handle string) (ConversationService, error)

	// Close discards a session.
	Close(handle string)

	// Len returns the number of live sessions.
	Len() int
}
